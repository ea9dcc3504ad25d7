package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripCodeFences(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name string
		in   string
		want string
	}{
		{"html_fence", "```html\n<h1>a</h1>\n```", "<h1>a</h1>"},
		{"plain_fence", "```\n<h1>a</h1>\n```", "<h1>a</h1>"},
		{"upper_crlf_spaces", "  ```HTML\r\n<p>x</p>\r\n```  ", "<p>x</p>"},
		{"single_line", "```html<p>x</p>```", "<p>x</p>"},
		{"no_fence", "<p>x</p>", "<p>x</p>"},
		{"inner_backticks_kept", "<p>a ``` b</p>", "<p>a ``` b</p>"},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, StripCodeFences(tc.in))
		})
	}
}

func TestEnsureDocument(t *testing.T) {
	t.Parallel()

	t.Run("fragment_wrapped", func(t *testing.T) {
		t.Parallel()

		out := EnsureDocument("<h1>Hi</h1>")
		require.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
		require.Contains(t, out, `<meta charset="UTF-8">`)
		require.Contains(t, out, "<title>Generated Website</title>")
		require.Contains(t, out, "<body>\n<h1>Hi</h1>\n</body>")
		require.True(t, strings.HasSuffix(out, "</html>"))
	})

	t.Run("percent_in_fragment", func(t *testing.T) {
		t.Parallel()

		out := EnsureDocument("<p>100%s off</p>")
		require.Contains(t, out, "<p>100%s off</p>")
	})

	t.Run("doctype_untouched", func(t *testing.T) {
		t.Parallel()

		in := "<!doctype html><html><body>x</body></html>"
		require.Equal(t, in, EnsureDocument(in))
	})

	t.Run("html_root_untouched", func(t *testing.T) {
		t.Parallel()

		in := `<html lang="ru"><body>x</body></html>`
		require.Equal(t, in, EnsureDocument(in))
	})
}

func TestDocument(t *testing.T) {
	t.Parallel()

	t.Run("script_removed_and_wrapped", func(t *testing.T) {
		t.Parallel()

		out := Document(`<script>alert(1)</script><h1>Welcome</h1>`)
		require.Contains(t, out, "<h1>Welcome</h1>")
		require.NotContains(t, strings.ToLower(out), "<script")
		require.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	})

	t.Run("fenced_full_document", func(t *testing.T) {
		t.Parallel()

		out := Document("```html\n" + cleanDocument + "\n```")
		require.Equal(t, cleanDocument, out)
	})

	t.Run("idempotent", func(t *testing.T) {
		t.Parallel()

		once := Document("```html\n<div onclick=\"x()\">a</div><iframe src=x></iframe>\n```")
		require.Equal(t, once, Document(once))
		require.NotContains(t, once, "onclick")
		require.NotContains(t, once, "<iframe")
	})
}
