package sanitize

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Элементы, удаляемые вместе с содержимым.
var droppedElements = map[string]struct{}{
	"script": {}, "iframe": {}, "object": {}, "embed": {}, "applet": {},
	"base": {}, "frame": {}, "frameset": {}, "noembed": {}, "noscript": {},
	"template": {}, "foreignobject": {}, "math": {}, "portal": {},
}

// Разрешённые элементы. Остальные разворачиваются: тег удаляется,
// дочерние узлы остаются на его месте.
var allowedElements = map[string]struct{}{
	"html": {}, "head": {}, "body": {}, "title": {}, "meta": {}, "link": {}, "style": {},
	"header": {}, "footer": {}, "main": {}, "nav": {}, "section": {}, "article": {}, "aside": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {}, "hgroup": {},
	"p": {}, "div": {}, "span": {}, "a": {}, "img": {}, "picture": {}, "source": {},
	"figure": {}, "figcaption": {}, "video": {}, "audio": {}, "track": {},
	"ul": {}, "ol": {}, "li": {}, "dl": {}, "dt": {}, "dd": {},
	"table": {}, "thead": {}, "tbody": {}, "tfoot": {}, "tr": {}, "th": {}, "td": {},
	"caption": {}, "colgroup": {}, "col": {},
	"blockquote": {}, "pre": {}, "code": {}, "em": {}, "strong": {}, "b": {}, "i": {},
	"u": {}, "s": {}, "small": {}, "mark": {}, "sub": {}, "sup": {}, "br": {}, "hr": {},
	"abbr": {}, "cite": {}, "q": {}, "time": {}, "address": {}, "details": {}, "summary": {},
	"form": {}, "button": {}, "input": {}, "label": {}, "select": {}, "option": {},
	"textarea": {}, "fieldset": {}, "legend": {},
	"svg": {}, "g": {}, "path": {}, "circle": {}, "ellipse": {}, "rect": {}, "line": {},
	"polyline": {}, "polygon": {}, "defs": {}, "lineargradient": {}, "radialgradient": {},
	"stop": {}, "text": {}, "tspan": {}, "symbol": {}, "clippath": {}, "mask": {},
}

// Разрешённые атрибуты (общий список для всех элементов).
// Дополнительно разрешены aria-* и data-*.
var allowedAttrs = map[string]struct{}{
	"id": {}, "class": {}, "style": {}, "title": {}, "lang": {}, "dir": {}, "role": {},
	"tabindex": {}, "hidden": {},
	"href": {}, "src": {}, "srcset": {}, "sizes": {}, "alt": {}, "width": {}, "height": {},
	"loading": {}, "target": {}, "rel": {}, "name": {}, "type": {}, "value": {},
	"placeholder": {}, "for": {}, "colspan": {}, "rowspan": {}, "scope": {}, "content": {},
	"charset": {}, "crossorigin": {}, "media": {}, "datetime": {}, "open": {},
	"checked": {}, "disabled": {}, "required": {}, "min": {}, "max": {}, "step": {},
	"rows": {}, "cols": {}, "selected": {}, "controls": {}, "autoplay": {}, "muted": {},
	"loop": {}, "playsinline": {}, "poster": {},
	"viewbox": {}, "xmlns": {}, "fill": {}, "stroke": {}, "stroke-width": {},
	"stroke-linecap": {}, "stroke-linejoin": {}, "d": {}, "cx": {}, "cy": {}, "r": {},
	"rx": {}, "ry": {}, "x": {}, "y": {}, "x1": {}, "y1": {}, "x2": {}, "y2": {},
	"points": {}, "transform": {}, "offset": {}, "stop-color": {}, "stop-opacity": {},
	"opacity": {}, "fill-opacity": {}, "fill-rule": {}, "clip-rule": {},
	"gradientunits": {}, "preserveaspectratio": {}, "font-size": {}, "font-family": {},
	"text-anchor": {},
}

var strictURLAttrs = map[string]struct{}{"href": {}, "src": {}, "srcset": {}, "poster": {}}

// Strict разбирает документ в дерево и оставляет только разрешённые
// элементы и атрибуты. Применяется поверх Sanitize как усиление.
// Если разбор невозможен, возвращается вход без изменений.
func Strict(doc string) string {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return doc
	}

	cleanChildren(root)

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return doc
	}

	return buf.String()
}

func cleanChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling

		switch c.Type {
		case html.CommentNode:
			n.RemoveChild(c)
		case html.ElementNode:
			cleanElement(n, c)
		}

		c = next
	}
}

func cleanElement(parent, n *html.Node) {
	name := strings.ToLower(n.Data)

	if _, drop := droppedElements[name]; drop {
		parent.RemoveChild(n)
		return
	}

	if n.DataAtom == atom.Meta && isMetaRefresh(n) {
		parent.RemoveChild(n)
		return
	}

	cleanChildren(n)

	if _, ok := allowedElements[name]; !ok {
		unwrap(parent, n)
		return
	}

	n.Attr = strictCleanAttrs(n.Attr)

	if n.DataAtom == atom.Style {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				c.Data = CleanCSS(c.Data)
			}
		}
	}
}

// unwrap переносит дочерние узлы n на его место и удаляет n.
func unwrap(parent, n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		parent.InsertBefore(c, n)
		c = next
	}

	parent.RemoveChild(n)
}

func strictCleanAttrs(attrs []html.Attribute) []html.Attribute {
	out := attrs[:0]

	for _, a := range attrs {
		if a.Namespace != "" {
			continue
		}

		key := strings.ToLower(a.Key)
		if !isAllowedAttr(key) {
			continue
		}

		if _, isURL := strictURLAttrs[key]; isURL && !isSafeURL(a.Val) {
			continue
		}

		if key == "style" {
			a.Val = CleanCSS(a.Val)
		}

		out = append(out, a)
	}

	return out
}

func isAllowedAttr(key string) bool {
	if strings.HasPrefix(key, "on") {
		return false
	}

	if strings.HasPrefix(key, "aria-") || strings.HasPrefix(key, "data-") {
		return true
	}

	_, ok := allowedAttrs[key]

	return ok
}

// isSafeURL: исполняемые схемы запрещены, data: допустим только для
// растровых изображений.
func isSafeURL(v string) bool {
	if strings.Contains(normalizeURL(v), "script:") {
		return false
	}

	if isDataURL(v) {
		return isImageDataURL(v)
	}

	return true
}

func isMetaRefresh(n *html.Node) bool {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, "http-equiv") && strings.EqualFold(strings.TrimSpace(a.Val), "refresh") {
			return true
		}
	}

	return false
}
