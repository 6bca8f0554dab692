package cmd

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outputSample struct {
	SessionID string   `json:"sessionId"`
	Linked    []string `json:"linked"`
}

func TestWriteOutputFormats(t *testing.T) {
	t.Parallel()

	value := outputSample{SessionID: "AB12CD", Linked: []string{"http://x.test"}}
	text := func(w io.Writer) error {
		_, err := fmt.Fprintln(w, "plain AB12CD")
		return err
	}

	tests := []struct {
		format string
		want   []string
	}{
		{format: "text", want: []string{"plain AB12CD\n"}},
		{format: "json", want: []string{"{\n  \"sessionId\": \"AB12CD\",\n  \"linked\": [\n    \"http://x.test\"\n  ]\n}\n"}},
		{format: "YAML", want: []string{"sessionId: AB12CD\n", "linked:", "- http://x.test"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer
			require.NoError(t, writeOutput(&out, tt.format, value, text))
			for _, want := range tt.want {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}

func TestValidateOutput(t *testing.T) {
	t.Parallel()

	require.NoError(t, validateOutput("json"))
	require.Error(t, validateOutput("toml"))

	var out bytes.Buffer
	require.Error(t, writeOutput(&out, "csv", nil, nil))
}
