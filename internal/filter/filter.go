// Package filter compiles expr-lang predicates used by the watch command to
// select annotations, e.g. `url startsWith "http://localhost" && tag == "button"`.
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/annotation-relay/internal/domain"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

var ErrEmptyExpression = errors.New("filter expression is empty")

// Env is the variable set visible to a predicate.
type Env struct {
	Note     string `expr:"note"`
	URL      string `expr:"url"`
	Selector string `expr:"selector"`
	Tag      string `expr:"tag"`
	Text     string `expr:"text"`
	Session  string `expr:"session"`
}

func envFor(annotation domain.Annotation) Env {
	return Env{
		Note:     annotation.Note,
		URL:      annotation.Element.URL,
		Selector: annotation.Element.Selector,
		Tag:      strings.ToLower(annotation.Element.TagName),
		Text:     annotation.Element.InnerText,
		Session:  string(annotation.SessionID),
	}
}

type Predicate struct {
	source  string
	program *vm.Program
}

func Compile(source string) (*Predicate, error) {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return nil, ErrEmptyExpression
	}

	program, err := expr.Compile(trimmed, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile filter %q: %w", trimmed, err)
	}

	return &Predicate{source: trimmed, program: program}, nil
}

func (p *Predicate) String() string {
	return p.source
}

// Match reports whether annotation satisfies the predicate. A nil predicate
// matches everything.
func (p *Predicate) Match(annotation domain.Annotation) (bool, error) {
	if p == nil {
		return true, nil
	}

	out, err := expr.Run(p.program, envFor(annotation))
	if err != nil {
		return false, fmt.Errorf("evaluate filter %q: %w", p.source, err)
	}

	matched, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("evaluate filter %q: result is %T, not bool", p.source, out)
	}
	return matched, nil
}

// Select keeps the annotations the predicate matches, preserving order.
func (p *Predicate) Select(annotations []domain.Annotation) ([]domain.Annotation, error) {
	if p == nil {
		return annotations, nil
	}

	selected := make([]domain.Annotation, 0, len(annotations))
	for _, annotation := range annotations {
		ok, err := p.Match(annotation)
		if err != nil {
			return nil, err
		}
		if ok {
			selected = append(selected, annotation)
		}
	}
	return selected, nil
}
