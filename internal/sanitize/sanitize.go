// sanitize очищает HTML, полученный от модели, перед показом в
// sandbox-iframe без права на выполнение скриптов.
//
// Основной проход (Sanitize) работает по denylist на регулярных выражениях:
// сначала удаляются опасные элементы целиком, затем чистятся атрибуты и CSS.
// Denylist по определению неполон, поэтому результат всегда рендерится
// в sandbox-iframe. Для более строгого режима есть Strict: разбор в дерево
// и allowlist элементов/атрибутов.
//
// Функции пакета чистые и никогда не возвращают ошибок.
package sanitize

import (
	"html"
	"regexp"
	"strings"
)

// maxPasses — сколько раз прогоняем проходы, пока текст меняется.
// Удаление вложенного элемента может "склеить" новый тег
// (<scr<script></script>ipt>), поэтому одного прохода мало.
const maxPasses = 5

// Элементы, которые удаляются целиком вместе с содержимым.
var pairedElements = []string{"script", "iframe", "object", "applet", "frameset", "noembed"}

// Все запрещённые элементы: одиночные, открывающие и закрывающие теги.
const blockedTags = `script|iframe|object|embed|applet|base|frame|frameset|noembed`

var (
	pairedPatterns = func() []*regexp.Regexp {
		out := make([]*regexp.Regexp, 0, len(pairedElements))
		for _, name := range pairedElements {
			out = append(out, regexp.MustCompile(`(?is)<`+name+`\b[^>]*>.*?</`+name+`\s*>`))
		}
		return out
	}()

	// Одиночные/самозакрывающиеся/осиротевшие теги.
	singleTagPattern = regexp.MustCompile(`(?i)</?(?:` + blockedTags + `)\b[^>]*>`)

	// <meta http-equiv="refresh" ...> уводит фрейм на чужой адрес.
	metaRefreshPattern = regexp.MustCompile(`(?i)<meta\b[^>]*http-equiv\s*=\s*["']?\s*refresh[^>]*>`)

	// Открывающий тег. Значения в кавычках могут содержать '>'; если
	// кавычка не закрыта, тег заканчивается на первом '>'.
	startTagPattern = regexp.MustCompile(`<([a-zA-Z][^\s/>]*)((?:"[^"]*"|'[^']*'|[^>])*)>`)

	// Атрибут внутри тега: имя и необязательное значение. Разделителями
	// служат пробелы и '/', как у HTML-токенизатора.
	attrPattern = regexp.MustCompile(`([^\s/>=][^\s/>=]*)(?:\s*=\s*("[^"]*"|'[^']*'|[^\s>]*))?`)

	// CSS чистится только там, где он исполняется: <style> и style="...".
	styleBlockPattern = regexp.MustCompile(`(?is)(<style\b[^>]*>)(.*?)(</style\s*>)`)

	// Аргументы допускают один уровень вложенных скобок: expression(alert(1)).
	cssExpressionPattern = regexp.MustCompile(`(?i)expression\s*\((?:[^()]|\([^()]*\))*\)`)
	cssExpressionKeyword = regexp.MustCompile(`(?i)expression\s*\(`)
	cssScriptURLPattern  = regexp.MustCompile(`(?i)url\s*\(\s*["']?\s*(?:javascript|vbscript)\s*:(?:[^()]|\([^()]*\))*\)`)

	// Страховка после maxPasses: оставшиеся запрещённые теги экранируются.
	leftoverTagPattern = regexp.MustCompile(`(?i)<(/?(?:` + blockedTags + `))\b`)
)

// Sanitize удаляет из текста конструкции, способные выполнить код или
// увести страницу на чужой адрес. Уже чистый документ возвращается без
// изменений; повторный вызов на результате ничего не меняет.
func Sanitize(s string) string {
	s, ok := converge(s)
	if ok {
		return s
	}

	s = leftoverTagPattern.ReplaceAllString(s, "&lt;$1")
	s, _ = converge(s)

	return s
}

// converge повторяет pass, пока текст меняется, но не больше maxPasses раз.
func converge(s string) (string, bool) {
	for i := 0; i < maxPasses; i++ {
		next := pass(s)
		if next == s {
			return s, true
		}
		s = next
	}

	return s, false
}

// pass — один проход: элементы, затем атрибуты, затем CSS.
func pass(s string) string {
	for _, re := range pairedPatterns {
		s = re.ReplaceAllString(s, "")
	}

	s = singleTagPattern.ReplaceAllString(s, "")
	s = metaRefreshPattern.ReplaceAllString(s, "")

	s = startTagPattern.ReplaceAllStringFunc(s, cleanStartTag)

	s = styleBlockPattern.ReplaceAllStringFunc(s, func(m string) string {
		parts := styleBlockPattern.FindStringSubmatch(m)
		return parts[1] + CleanCSS(parts[2]) + parts[3]
	})

	return s
}

// urlAttrs — атрибуты, значение которых браузер разбирает как URL.
var urlAttrs = map[string]struct{}{
	"href": {}, "src": {}, "action": {}, "formaction": {}, "poster": {}, "background": {},
}

// cleanStartTag чистит атрибуты одного открывающего тега. Текст между
// тегами не трогается, поэтому "online = yes" в абзаце остаётся как есть.
func cleanStartTag(tag string) string {
	loc := startTagPattern.FindStringSubmatchIndex(tag)
	if loc == nil {
		return tag
	}

	return tag[:loc[4]] + cleanAttrs(tag[loc[4]:loc[5]]) + tag[loc[5]:]
}

// cleanAttrs проходит атрибуты слева направо: значения в кавычках
// поглощаются целиком и внутри них имена не ищутся.
func cleanAttrs(body string) string {
	matches := attrPattern.FindAllStringSubmatchIndex(body, -1)
	if matches == nil {
		return body
	}

	var b strings.Builder
	b.Grow(len(body))

	last := 0
	for _, m := range matches {
		b.WriteString(body[last:m[0]])
		last = m[1]

		attr := body[m[0]:m[1]]
		name := strings.ToLower(body[m[2]:m[3]])
		if i := strings.LastIndexByte(name, ':'); i >= 0 {
			name = name[i+1:] // xlink:href
		}

		if isEventHandler(name) {
			continue
		}

		if m[4] < 0 {
			b.WriteString(attr)
			continue
		}

		value := body[m[4]:m[5]]

		switch _, isURL := urlAttrs[name]; {
		case isURL:
			b.WriteString(neutralizeURLAttr(name, attr, value))
		case name == "style":
			b.WriteString(body[m[0]:m[4]] + CleanCSS(value))
		default:
			b.WriteString(attr)
		}
	}

	b.WriteString(body[last:])

	return b.String()
}

// isEventHandler — on* с непустым продолжением: onclick, onerror, ONLOAD.
func isEventHandler(name string) bool {
	return len(name) > 2 && strings.HasPrefix(name, "on")
}

// neutralizeURLAttr заменяет значение URL-атрибута на нейтральное,
// если после декодирования сущностей и удаления пробелов в нём оказывается
// исполняемая схема или data: не с изображением.
func neutralizeURLAttr(name, attr, rawValue string) string {
	value := unquote(rawValue)

	switch {
	case isScriptURL(value):
		if name == "href" {
			return `href="#"`
		}
		return name + `=""`
	case name == "href" && isDataURL(value) && !isImageDataURL(value):
		return `href="#"`
	default:
		return attr
	}
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}

	return v
}

// normalizeURL приводит значение атрибута к виду, в котором его видит
// браузер при разборе схемы: сущности декодированы, управляющие символы
// и пробелы удалены, регистр нижний.
func normalizeURL(v string) string {
	v = html.UnescapeString(v)

	var b strings.Builder
	b.Grow(len(v))

	for _, r := range v {
		if r <= ' ' || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}

	return strings.ToLower(b.String())
}

func isScriptURL(v string) bool {
	n := normalizeURL(v)
	return strings.HasPrefix(n, "javascript:") || strings.HasPrefix(n, "vbscript:")
}

func isDataURL(v string) bool {
	return strings.HasPrefix(normalizeURL(v), "data:")
}

// isImageDataURL — data:image/*, кроме SVG: SVG может содержать скрипты.
func isImageDataURL(v string) bool {
	n := normalizeURL(v)
	if !strings.HasPrefix(n, "data:image/") {
		return false
	}

	return !strings.HasPrefix(n, "data:image/svg")
}

// CleanCSS удаляет из CSS исполняемые конструкции: expression(...)
// и url(javascript:...). При более глубокой вложенности остаётся только
// содержимое скобок без ключевого слова.
func CleanCSS(s string) string {
	s = cssExpressionPattern.ReplaceAllString(s, "")
	s = cssExpressionKeyword.ReplaceAllString(s, "(")
	return cssScriptURLPattern.ReplaceAllString(s, "url()")
}
