package application

import (
	"context"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/bnema/annotation-relay/internal/domain"
)

// FindByURL reports the session an annotation for url would be routed to.
// It neither drains the queue nor counts as activity.
func (r *Relay) FindByURL(ctx context.Context, url string) (domain.SessionSummary, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.SessionSummary{}, false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	entry := r.routeLocked(url)
	if entry == nil {
		return domain.SessionSummary{}, false, nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.session.Summary(), true, nil
}

// routeLocked scans sessions in registration order. Callers hold Relay.mu.
func (r *Relay) routeLocked(url string) *sessionEntry {
	if url == "" {
		return nil
	}

	var best *sessionEntry
	bestLen := -1
	for _, id := range r.order {
		entry := r.entries[id]

		entry.mu.Lock()
		matched := longestMatch(entry.session.URLPrefixes, url)
		entry.mu.Unlock()

		if matched < 0 {
			continue
		}
		if r.cfg.RoutingStrategy != domain.RoutingLongestPrefix {
			return entry
		}
		if matched > bestLen {
			best = entry
			bestLen = matched
		}
	}

	return best
}

// longestMatch returns the length of the longest prefix matching url, or -1.
func longestMatch(prefixes []string, url string) int {
	best := -1
	for _, prefix := range prefixes {
		if !prefixMatches(prefix, url) {
			continue
		}
		if len(prefix) > best {
			best = len(prefix)
		}
	}

	return best
}

// prefixMatches treats the prefix as a literal string prefix. Prefixes holding
// '*', '[' or '{' may also match as a doublestar pattern over the whole URL,
// so "http://x.test/**/edit" claims every edit page under that host.
func prefixMatches(prefix, url string) bool {
	if prefix == "" {
		return false
	}
	if strings.HasPrefix(url, prefix) {
		return true
	}
	if !strings.ContainsAny(prefix, "*[{") {
		return false
	}

	matched, err := doublestar.Match(prefix, url)
	return err == nil && matched
}
