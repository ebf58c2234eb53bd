package output

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	API      string `json:"api" yaml:"api"`
	Revision string `json:"revision" yaml:"revision"`
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input       string
		expected    Format
		expectError bool
	}{
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"", FormatTable, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.expectError {
				assert.EqualError(t, err, "unsupported output format: "+tt.input)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestPrint(t *testing.T) {
	data := []row{{API: "gulp-v1", Revision: "1"}}
	table := func(w io.Writer) error {
		return PrintTable(w, []string{"API", "REVISION"}, [][]string{{"gulp-v1", "1"}})
	}

	tests := []struct {
		format   Format
		expected string
	}{
		{FormatTable, "API      REVISION\ngulp-v1  1\n"},
		{FormatJSON, "[\n  {\n    \"api\": \"gulp-v1\",\n    \"revision\": \"1\"\n  }\n]\n"},
		{FormatYAML, "- api: gulp-v1\n  revision: \"1\"\n"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Print(&buf, tt.format, data, table))
			assert.Equal(t, tt.expected, buf.String())
		})
	}

	assert.Error(t, Print(io.Discard, "xml", data, table))
}

func TestPrint_TableError(t *testing.T) {
	err := Print(io.Discard, FormatTable, nil, func(io.Writer) error { return errors.New("boom") })
	assert.EqualError(t, err, "boom")
}

func TestFormatTimeAgo(t *testing.T) {
	tests := []struct {
		ago      time.Duration
		expected string
	}{
		{10 * time.Second, "just now"},
		{time.Minute + time.Second, "1 minute ago"},
		{5 * time.Minute, "5 minutes ago"},
		{time.Hour + time.Minute, "1 hour ago"},
		{3 * time.Hour, "3 hours ago"},
		{25 * time.Hour, "1 day ago"},
		{72 * time.Hour, "3 days ago"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatTimeAgo(time.Now().Add(-tt.ago)))
		})
	}
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "-", FormatTime(time.Time{}))
	assert.Equal(t, "-", OrDash(""))
	assert.Equal(t, "1", OrDash("1"))

	var buf bytes.Buffer
	Success(&buf, "Deployed revision 1")
	Warn(&buf, "no history")
	Info(&buf, "done")
	assert.Equal(t, "✓ Deployed revision 1\nWarning: no history\ndone\n", buf.String())
}
