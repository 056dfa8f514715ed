package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aiwire/observatory/internal/database"
	"github.com/aiwire/observatory/internal/models"
	"github.com/aiwire/observatory/internal/queue"
)

const fetchUserAgent = "observatory/1.0 (+https://github.com/aiwire/observatory)"

// Processor captures one raw item as an immutable evidence snapshot:
// canonicalize the URL, pin the source's trust tier, fetch the page, hash
// the body, persist. A fetch failure still produces a snapshot carrying the
// status code, so the pipeline records that the capture was attempted.
type Processor struct {
	evidence    *database.EvidenceRepository
	client      *http.Client
	dedupWindow time.Duration
	logger      *slog.Logger
}

// NewProcessor creates the snapshot processor.
func NewProcessor(evidence *database.EvidenceRepository, fetchTimeout, dedupWindow time.Duration, logger *slog.Logger) *Processor {
	if fetchTimeout <= 0 {
		fetchTimeout = 15 * time.Second
	}
	return &Processor{
		evidence:    evidence,
		client:      &http.Client{Timeout: fetchTimeout},
		dedupWindow: dedupWindow,
		logger:      logger,
	}
}

// Handle consumes one snapshot job and chains the cluster judge.
func (p *Processor) Handle(ctx context.Context, job *queue.Job) (queue.Result, error) {
	var payload models.SnapshotJob
	if err := job.Bind(&payload); err != nil {
		return queue.Fail(err.Error()), nil
	}
	item := payload.Item

	canonical, err := Canonicalize(item.URL)
	if err != nil {
		p.logger.Warn("dropping item with unusable url", "url", item.URL, "error", err)
		return queue.Fail(fmt.Sprintf("unusable url: %v", err)), nil
	}
	domain := Domain(canonical)

	source, err := p.evidence.UpsertSource(ctx, models.EvidenceSource{
		RawURL:       item.URL,
		CanonicalURL: canonical,
		Domain:       domain,
		TrustTier:    ClassifyTrust(domain),
	})
	if err != nil {
		return queue.Result{}, err
	}

	body, status := p.fetch(ctx, canonical)
	hash := hashBody(body, item.Title)

	if p.dedupWindow > 0 {
		existing, err := p.evidence.FindRecentSnapshot(ctx, source.ID, hash, time.Now().Add(-p.dedupWindow))
		if err != nil {
			return queue.Result{}, err
		}
		if existing != nil {
			p.logger.Debug("content unchanged within dedup window",
				"source_id", source.ID,
				"snapshot_id", existing.ID)
			return queue.Skip("duplicate content within dedup window"), nil
		}
	}

	snap := models.EvidenceSnapshot{
		SourceID:    source.ID,
		SourceType:  item.SourceType,
		Title:       item.Title,
		PublishedAt: item.PublishedAt,
		ContentHash: hash,
		HTTPStatus:  status,
	}
	if item.Author != "" {
		snap.Author = &item.Author
	}
	if len(body) > 0 {
		text := string(body)
		snap.FullText = &text
	}

	stored, err := p.evidence.CreateSnapshot(ctx, snap)
	if err != nil {
		return queue.Result{}, err
	}

	p.logger.Info("snapshot captured",
		"snapshot_id", stored.ID,
		"source_id", source.ID,
		"domain", domain,
		"http_status", status)

	return queue.OK(queue.NextJob{
		Queue:   queue.QueueCluster,
		Payload: models.ClusterJob{SnapshotID: stored.ID},
	}), nil
}

// fetch retrieves the page body. Failures return an empty body and a zero
// or error status; the snapshot still gets written.
func (p *Processor) fetch(ctx context.Context, url string) ([]byte, int) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		p.logger.Warn("failed to build fetch request", "url", url, "error", err)
		return nil, 0
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("fetch failed", "url", url, "error", err)
		return nil, 0
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		p.logger.Warn("failed to read fetch body", "url", url, "error", err)
		return nil, resp.StatusCode
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode
	}

	return body, resp.StatusCode
}

// hashBody digests the captured content. An empty body falls back to the
// title so failed fetches still dedup within the window.
func hashBody(body []byte, title string) string {
	h := sha256.New()
	if len(body) > 0 {
		h.Write(body)
	} else {
		h.Write([]byte(title))
	}
	return hex.EncodeToString(h.Sum(nil))
}
