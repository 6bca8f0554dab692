package annotations

import (
	"errors"
	"io"

	"github.com/bnema/annotation-relay/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

type renderReadyMsg struct{}

type model struct {
	annotations []domain.Annotation
	opts        RenderOptions
	styles      styles
	output      string
}

func newModel(annotations []domain.Annotation, opts RenderOptions) model {
	return model{
		annotations: annotations,
		opts:        opts,
		styles:      newStyles(),
	}
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case renderReadyMsg:
		m.output = renderView(m.annotations, m.opts, m.styles)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.output
}

// Render lays out annotations as cards, one per annotation, oldest first.
func Render(annotations []domain.Annotation, opts RenderOptions) (string, error) {
	p := tea.NewProgram(
		newModel(annotations, opts),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}
