package annotations

import (
	"fmt"
	"strings"
	"time"

	"github.com/bnema/annotation-relay/internal/domain"
	"github.com/charmbracelet/lipgloss"
	rw "github.com/mattn/go-runewidth"
)

const defaultWidth = 80

type RenderOptions struct {
	Now       time.Time
	SessionID domain.SessionID
	// Width bounds each rendered line; zero means 80 columns.
	Width int
}

func renderView(annotations []domain.Annotation, opts RenderOptions, s styles) string {
	header := fmt.Sprintf("annotations: %d", len(annotations))
	if opts.SessionID != "" {
		header = fmt.Sprintf("session: %s  %s", opts.SessionID, header)
	}

	lines := []string{
		s.title.Render("Annotations"),
		s.header.Render(header),
	}

	if len(annotations) == 0 {
		lines = append(lines, s.empty.Render("No annotations."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for i, annotation := range annotations {
		lines = append(lines, s.section.Render(renderCard(i+1, annotation, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderCard(index int, annotation domain.Annotation, opts RenderOptions, s styles) string {
	width := opts.Width
	if width <= 0 {
		width = defaultWidth
	}
	valueWidth := width - 12
	if valueWidth < 16 {
		valueWidth = 16
	}

	title := fmt.Sprintf("#%d %s", index, shortID(annotation.ID))
	if received := formatReceived(annotation.ReceivedAt, opts.Now); received != "" {
		title += "  " + received
	}

	parts := []string{
		s.heading.Render(title),
		field("note", s.note.Render(truncate(annotation.Note, valueWidth)), s),
		field("url", s.detail.Render(truncate(annotation.Element.URL, valueWidth)), s),
	}

	if target := elementTarget(annotation.Element); target != "" {
		parts = append(parts, field("element", s.selector.Render(truncate(target, valueWidth)), s))
	}
	if text := collapseWhitespace(annotation.Element.InnerText); text != "" {
		parts = append(parts, field("text", s.detail.Render(truncate(fmt.Sprintf("%q", text), valueWidth)), s))
	}
	if opts.SessionID == "" && annotation.SessionID != "" {
		parts = append(parts, field("session", s.detail.Render(string(annotation.SessionID)), s))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func field(key string, value string, s styles) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, s.key.Render(fmt.Sprintf("  %-8s", key+":")), " ", value)
}

// elementTarget prefers the CSS selector, then xpath, and tags it with the
// element name when known.
func elementTarget(element domain.Element) string {
	target := element.Selector
	if target == "" {
		target = element.XPath
	}

	tag := strings.ToLower(strings.TrimSpace(element.TagName))
	switch {
	case target == "" && tag == "":
		return ""
	case target == "":
		return "<" + tag + ">"
	case tag == "":
		return target
	default:
		return fmt.Sprintf("%s <%s>", target, tag)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatReceived(receivedAt, now time.Time) string {
	if receivedAt.IsZero() {
		return ""
	}
	if now.IsZero() {
		return receivedAt.Format(time.RFC3339)
	}

	age := now.Sub(receivedAt)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return receivedAt.Format("15:04 on 02 Jan")
	}
}

func truncate(value string, width int) string {
	return rw.Truncate(value, width, "…")
}

func collapseWhitespace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
