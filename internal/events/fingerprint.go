package events

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/aiwire/observatory/internal/models"
)

// NormalizeTitle lowercases a title and collapses runs of whitespace, the
// canonical form used for fingerprinting and similarity.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// Fingerprint derives the deduplication key for an event: the source type,
// the UTC calendar day it occurred, and the normalized title. Truncated to
// 32 hex chars; the events table holds a unique index on it.
func Fingerprint(sourceType models.SourceType, occurredAt time.Time, title string) string {
	day := occurredAt.UTC().Format("2006-01-02")
	input := string(sourceType) + ":" + day + ":" + NormalizeTitle(title)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:32]
}
