package sanitize

import (
	"fmt"
	"regexp"
	"strings"
)

const skeleton = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Generated Website</title>
</head>
<body>
%s
</body>
</html>`

var (
	fenceOpenPattern  = regexp.MustCompile("(?i)^```(?:html)?[ \\t]*\\r?\\n?")
	fenceClosePattern = regexp.MustCompile("\\r?\\n?```$")
	documentStart     = regexp.MustCompile(`(?i)^(?:<!doctype|<html)`)
)

// StripCodeFences снимает markdown-обёртку ```html ... ``` вокруг ответа модели.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = fenceOpenPattern.ReplaceAllString(s, "")
	s = fenceClosePattern.ReplaceAllString(s, "")

	return strings.TrimSpace(s)
}

// EnsureDocument оборачивает фрагмент в минимальный HTML-каркас,
// если текст не начинается с doctype или <html>.
func EnsureDocument(s string) string {
	if documentStart.MatchString(strings.TrimSpace(s)) {
		return s
	}

	return fmt.Sprintf(skeleton, s)
}

// Document — полный конвейер для ответа модели:
// снятие code fence, Sanitize, оборачивание в каркас.
func Document(raw string) string {
	return EnsureDocument(Sanitize(StripCodeFences(raw)))
}
