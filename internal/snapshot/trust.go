package snapshot

import (
	"strings"

	"github.com/aiwire/observatory/internal/models"
)

// Domain trust policy. Tier assignment is a pure function of the domain so
// the same source always scores the same way.
var (
	authoritativeDomains = map[string]bool{
		"openai.com":        true,
		"anthropic.com":     true,
		"deepmind.google":   true,
		"ai.meta.com":       true,
		"blog.google":       true,
		"microsoft.com":     true,
		"nvidia.com":        true,
		"arxiv.org":         true,
		"nature.com":        true,
		"science.org":       true,
		"nist.gov":          true,
		"whitehouse.gov":    true,
		"europa.eu":         true,
		"huggingface.co":    true,
		"mistral.ai":        true,
		"x.ai":              true,
		"cohere.com":        true,
		"stability.ai":      true,
	}

	standardDomains = map[string]bool{
		"techcrunch.com":      true,
		"theverge.com":        true,
		"arstechnica.com":     true,
		"wired.com":           true,
		"reuters.com":         true,
		"bloomberg.com":       true,
		"nytimes.com":         true,
		"wsj.com":             true,
		"ft.com":              true,
		"theinformation.com":  true,
		"venturebeat.com":     true,
		"semafor.com":         true,
		"theregister.com":     true,
		"zdnet.com":           true,
		"bbc.com":             true,
		"bbc.co.uk":           true,
	}
)

// ClassifyTrust maps a domain to its trust tier. Unknown domains are LOW:
// aggregator links, personal blogs and forums never corroborate on their own.
func ClassifyTrust(domain string) models.TrustTier {
	domain = strings.ToLower(strings.TrimPrefix(domain, "www."))

	if matchesDomain(domain, authoritativeDomains) {
		return models.TierAuthoritative
	}
	if matchesDomain(domain, standardDomains) {
		return models.TierStandard
	}
	return models.TierLow
}

// matchesDomain checks the domain and its parent domains, so a policy entry
// for example.com also covers blog.example.com.
func matchesDomain(domain string, policy map[string]bool) bool {
	for domain != "" {
		if policy[domain] {
			return true
		}
		i := strings.IndexByte(domain, '.')
		if i < 0 {
			break
		}
		domain = domain[i+1:]
	}
	return false
}
