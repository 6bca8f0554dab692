package filter

import (
	"testing"

	"github.com/bnema/annotation-relay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() []domain.Annotation {
	return []domain.Annotation{
		{Note: "broken button", SessionID: "AB12CD", Element: domain.Element{URL: "http://localhost:3000/cart", Selector: "button.pay", TagName: "BUTTON", InnerText: "Pay now"}},
		{Note: "typo in heading", Element: domain.Element{URL: "http://localhost:3000/", TagName: "H1", InnerText: "Welcom"}},
		{Note: "logo blurry", Element: domain.Element{URL: "https://staging.test/", Selector: "img.logo", TagName: "IMG"}},
	}
}

func TestPredicateSelect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		source    string
		wantNotes []string
	}{
		{name: "by tag", source: `tag == "button"`, wantNotes: []string{"broken button"}},
		{name: "by url prefix", source: `url startsWith "http://localhost"`, wantNotes: []string{"broken button", "typo in heading"}},
		{name: "by note substring", source: `note contains "logo"`, wantNotes: []string{"logo blurry"}},
		{name: "combined", source: `url startsWith "http://localhost" && text matches "^Welc"`, wantNotes: []string{"typo in heading"}},
		{name: "by session", source: `session == "AB12CD"`, wantNotes: []string{"broken button"}},
		{name: "selector present", source: `selector != ""`, wantNotes: []string{"broken button", "logo blurry"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			predicate, err := Compile(tt.source)
			require.NoError(t, err)

			selected, err := predicate.Select(sample())
			require.NoError(t, err)

			notes := make([]string, 0, len(selected))
			for _, a := range selected {
				notes = append(notes, a.Note)
			}
			assert.Equal(t, tt.wantNotes, notes)
		})
	}
}

func TestCompileRejectsBadExpressions(t *testing.T) {
	t.Parallel()

	_, err := Compile("   ")
	require.ErrorIs(t, err, ErrEmptyExpression)

	_, err = Compile(`note + 1`)
	require.Error(t, err)

	_, err = Compile(`unknown == "x"`)
	require.Error(t, err)

	_, err = Compile(`url`)
	require.Error(t, err)
}

func TestNilPredicateMatchesEverything(t *testing.T) {
	t.Parallel()

	var predicate *Predicate
	ok, err := predicate.Match(sample()[0])
	require.NoError(t, err)
	assert.True(t, ok)

	all, err := predicate.Select(sample())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
