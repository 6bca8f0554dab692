package sessions

import (
	"fmt"
	"strings"
	"time"

	"github.com/bnema/annotation-relay/internal/domain"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	rw "github.com/mattn/go-runewidth"
)

const maxPrefixWidth = 48

type RenderOptions struct {
	Now time.Time
	// StaleAfter marks sessions idle for at least this long; zero disables it.
	StaleAfter time.Duration
}

// Render draws the session list as a table, in registration order.
func Render(sessions []domain.SessionSummary, opts RenderOptions) string {
	if len(sessions) == 0 {
		return "No sessions registered."
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Session", "Consumer", "URL prefixes", "Pending", "Last activity"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
	})

	for _, session := range sessions {
		t.AppendRow(table.Row{
			string(session.ID),
			consumerLabel(session.ConsumerID),
			prefixesCell(session.URLPrefixes),
			session.PendingCount,
			activityLabel(session, opts),
		})
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d sessions", len(sessions)), "", "", totalPending(sessions), ""})

	return t.Render()
}

func consumerLabel(consumerID string) string {
	if strings.TrimSpace(consumerID) == "" {
		return "-"
	}
	return rw.Truncate(consumerID, 24, "…")
}

func prefixesCell(prefixes []string) string {
	if len(prefixes) == 0 {
		return "(none)"
	}

	lines := make([]string, 0, len(prefixes))
	for _, prefix := range prefixes {
		lines = append(lines, rw.Truncate(prefix, maxPrefixWidth, "…"))
	}
	return strings.Join(lines, "\n")
}

func activityLabel(session domain.SessionSummary, opts RenderOptions) string {
	if opts.Now.IsZero() {
		return session.LastActivityAt.Format(time.RFC3339)
	}

	idle := opts.Now.Sub(session.LastActivityAt)
	if idle < 0 {
		idle = 0
	}
	label := formatIdle(idle)
	if opts.StaleAfter > 0 && idle >= opts.StaleAfter {
		label += " [stale]"
	}
	return label
}

func formatIdle(idle time.Duration) string {
	switch {
	case idle < time.Minute:
		return "just now"
	case idle < time.Hour:
		return fmt.Sprintf("%dm ago", int(idle.Minutes()))
	case idle < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(idle.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(idle.Hours()/24))
	}
}

func totalPending(sessions []domain.SessionSummary) int {
	total := 0
	for _, session := range sessions {
		total += session.PendingCount
	}
	return total
}
