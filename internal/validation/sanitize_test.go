package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeForEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"plain text", "plain text"},
		{"<script>alert('x')</script>", "&lt;script&gt;alert(&#x27;x&#x27;)&lt;/script&gt;"},
		{`Tom & "Jerry"`, "Tom &amp; &quot;Jerry&quot;"},
		{"O'Brien", "O&#x27;Brien"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeForEmail(tt.in))
		})
	}

	t.Run("NoRawMetacharactersLeft", func(t *testing.T) {
		out := SanitizeForEmail(`<a href="x">&'</a>`)
		assert.NotContains(t, out, "<")
		assert.NotContains(t, out, ">")
		assert.NotContains(t, out, `"`)
		assert.NotContains(t, out, "'")
		// every remaining & starts an entity
		for i, r := range out {
			if r == '&' {
				rest := out[i:]
				assert.True(t,
					strings.HasPrefix(rest, "&amp;") || strings.HasPrefix(rest, "&lt;") ||
						strings.HasPrefix(rest, "&gt;") || strings.HasPrefix(rest, "&quot;") ||
						strings.HasPrefix(rest, "&#x27;"),
					rest)
			}
		}
	})

	t.Run("NotIdempotent", func(t *testing.T) {
		once := SanitizeForEmail("Tom & Jerry")
		twice := SanitizeForEmail(once)
		assert.Equal(t, "Tom &amp; Jerry", once)
		assert.Equal(t, "Tom &amp;amp; Jerry", twice)
		assert.NotEqual(t, once, twice)
	})
}

func TestExtractPrice(t *testing.T) {
	assert.Equal(t, int64(250), ExtractPrice("Classic Haircut - R250"))
	assert.Equal(t, int64(600), ExtractPrice("Deluxe Grooming Package - R600"))
	assert.Equal(t, int64(0), ExtractPrice("Consultation"))
	assert.Equal(t, int64(0), ExtractPrice("Free - R"))
	assert.Equal(t, int64(15), ExtractPrice("R15 then R30"))
}
