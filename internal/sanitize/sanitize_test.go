package sanitize

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Unit-тесты для internal/sanitize (sanitize.go).
//
// Покрытие:
//   - удаление <script> (парный, многострочный, смешанный регистр, атрибуты,
//     самозакрывающийся, осиротевший, "склейка" после удаления вложенного);
//   - удаление iframe/object/embed/applet/base и meta refresh;
//   - обработчики событий в кавычках и без, через слэш после имени тега
//     и после значения другого атрибута, в т.ч. с ">" в кавычках;
//   - текст между тегами не меняется;
//   - javascript:/vbscript: в href/src, в т.ч. с сущностями и пробелами;
//   - data: в href: изображения сохраняются, остальное нейтрализуется;
//   - CSS expression(...) и url(javascript:...) в <style> и style="...";
//   - идемпотентность на чистом входе и на собственном выходе.

var (
	onAttrAssign = regexp.MustCompile(`(?i)[\s"'/]on[a-z0-9_:.-]+\s*=`)
	scriptHref   = regexp.MustCompile(`(?i)(href|src)\s*=\s*["']?\s*(javascript|vbscript):`)
)

func TestSanitize_ScriptElements(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name string
		in   string
	}{
		{"paired", `<h1>Hi</h1><script>alert(1)</script>`},
		{"multiline", "<script>\nvar a = 1;\nalert(a);\n</script><p>x</p>"},
		{"mixed_case", `<ScRiPt>alert(1)</sCrIpT>`},
		{"attributes", `<script type="text/javascript" src="https://evil.example/x.js"></script>`},
		{"self_closing", `<script src="https://evil.example/x.js" />`},
		{"unclosed", `<p>a</p><script>alert(1)`},
		{"orphan_close", `<p>a</p></script >`},
		{"gt_in_attr", `<script title="a>b">alert(1)</script>`},
		{"nested_reassembly", `<scr<script></script>ipt>alert(1)</script>`},
		{"closing_space", `<script >alert(1)</script >`},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := Sanitize(tc.in)
			require.NotContains(t, strings.ToLower(out), "<script")
		})
	}
}

func TestSanitize_BlockedElements(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name    string
		in      string
		absent  string
		present string
	}{
		{"iframe", `<p>a</p><iframe src="https://evil.example"></iframe>`, "<iframe", "<p>a</p>"},
		{"iframe_unclosed", `<iframe src=x><p>a</p>`, "<iframe", "<p>a</p>"},
		{"object", `<object data="x.swf"><param name="a"></object><p>a</p>`, "<object", "<p>a</p>"},
		{"embed", `<embed src="x.swf"><p>a</p>`, "<embed", "<p>a</p>"},
		{"applet", `<applet code="X"></applet><p>a</p>`, "<applet", "<p>a</p>"},
		{"base", `<base href="https://evil.example/"><p>a</p>`, "<base", "<p>a</p>"},
		{"meta_refresh", `<meta http-equiv="refresh" content="0;url=https://evil.example"><p>a</p>`, "refresh", "<p>a</p>"},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := Sanitize(tc.in)
			require.NotContains(t, strings.ToLower(out), tc.absent)
			require.Contains(t, out, tc.present)
		})
	}
}

func TestSanitize_EventHandlers(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name string
		in   string
		want string
	}{
		{"double_quoted", `<button onclick="alert(1)">Go</button>`, `<button >Go</button>`},
		{"single_quoted", `<div onmouseover='x()'>a</div>`, `<div >a</div>`},
		{"unquoted", `<img src="a.png" onerror=alert(1)>`, `<img src="a.png" >`},
		{"unquoted_parens_quotes", `<img src="a.png" onerror=alert('x')>`, `<img src="a.png" >`},
		{"upper_case", `<body ONLOAD="x()">`, `<body >`},
		{"spaces_around_eq", `<a onclick = "x()">a</a>`, `<a >a</a>`},
		{"slash_after_tag", `<svg/onload=alert(1)>`, `<svg/>`},
		{"slash_after_quoted_value", `<img src="x"/onerror="alert(1)">`, `<img src="x"/>`},
		{"slash_after_unquoted_value", `<img src=x /onerror=alert(1)>`, `<img src=x />`},
		{"slash_after_href", `<a href="/a"/onclick=alert(1)>a</a>`, `<a href="/a"/>a</a>`},
		{"gt_in_quoted_value", `<a title="a>b" onclick="x()">a</a>`, `<a title="a>b" >a</a>`},
		{"namespaced", `<svg xlink:onclick="x()">`, `<svg >`},
		{"after_quoted_value", `<img src="a.png"onerror="x()">`, `<img src="a.png">`},
		{"several", `<a onclick="a()" onfocus="b()" href="/x">a</a>`, `<a href="/x">a</a>`},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := Sanitize(tc.in)
			require.False(t, onAttrAssign.MatchString(out), "on* attribute left in %q", out)
			require.Equal(t, strings.Join(strings.Fields(tc.want), " "), strings.Join(strings.Fields(out), " "))
		})
	}
}

func TestSanitize_ScriptURLs(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name string
		in   string
		want string
	}{
		{"href_js", `<a href="javascript:alert(1)">x</a>`, `<a href="#">x</a>`},
		{"href_js_single_quotes", `<a href='javascript:alert("x")'>x</a>`, `<a href="#">x</a>`},
		{"href_js_unquoted", `<a href=javascript:alert(1)>x</a>`, `<a href="#">x</a>`},
		{"href_js_upper", `<a HREF="JavaScript:alert(1)">x</a>`, `<a href="#">x</a>`},
		{"href_js_leading_space", `<a href="  javascript:alert(1)">x</a>`, `<a href="#">x</a>`},
		{"href_js_tab_inside", "<a href=\"java\tscript:alert(1)\">x</a>", `<a href="#">x</a>`},
		{"href_js_entity", `<a href="&#106;avascript:alert(1)">x</a>`, `<a href="#">x</a>`},
		{"href_vbscript", `<a href="vbscript:msgbox(1)">x</a>`, `<a href="#">x</a>`},
		{"src_js", `<img src="javascript:alert(1)">`, `<img src="">`},
		{"src_vbscript", `<img src='vbscript:x'>`, `<img src="">`},
		{"form_action", `<form action="javascript:x()"></form>`, `<form action=""></form>`},
		{"safe_href_kept", `<a href="https://example.com/a?b=1">x</a>`, `<a href="https://example.com/a?b=1">x</a>`},
		{"anchor_kept", `<a href="#pricing">x</a>`, `<a href="#pricing">x</a>`},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := Sanitize(tc.in)
			require.Equal(t, tc.want, out)
			require.False(t, scriptHref.MatchString(out))
		})
	}
}

func TestSanitize_DataURLs(t *testing.T) {
	t.Parallel()

	t.Run("image_kept", func(t *testing.T) {
		t.Parallel()
		in := `<a href="data:image/png;base64,AAAA">img</a>`
		require.Equal(t, in, Sanitize(in))
	})

	t.Run("img_src_kept", func(t *testing.T) {
		t.Parallel()
		in := `<img src="data:image/jpeg;base64,AAAA" alt="">`
		require.Equal(t, in, Sanitize(in))
	})

	t.Run("html_neutralized", func(t *testing.T) {
		t.Parallel()
		out := Sanitize(`<a href="data:text/html,<b>x</b>">x</a>`)
		require.True(t, strings.HasPrefix(out, `<a href="#"`), out)
		require.NotContains(t, out, "data:text/html")
	})

	t.Run("svg_neutralized", func(t *testing.T) {
		t.Parallel()
		out := Sanitize(`<a href="data:image/svg+xml;base64,AAAA">x</a>`)
		require.Equal(t, `<a href="#">x</a>`, out)
	})
}

func TestSanitize_CSS(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name string
		in   string
		want string
	}{
		{
			"style_block_expression",
			`<style>.a{width:expression(alert(1));color:red}</style>`,
			`<style>.a{width:;color:red}</style>`,
		},
		{
			"style_block_url_js",
			`<style>.a{background:url("javascript:alert(1)")}</style>`,
			`<style>.a{background:url()}</style>`,
		},
		{
			"style_attr_url_js",
			`<div style="background: url(javascript:alert(1))">a</div>`,
			`<div style="background: url()">a</div>`,
		},
		{
			"style_attr_expression",
			`<div style="width: expression(document.body.clientWidth)">a</div>`,
			`<div style="width: ">a</div>`,
		},
		{
			"text_untouched",
			`<p>A regular expression (regex) is useful.</p>`,
			`<p>A regular expression (regex) is useful.</p>`,
		},
		{
			"safe_url_kept",
			`<div style="background:url('hero.jpg')">a</div>`,
			`<div style="background:url('hero.jpg')">a</div>`,
		},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Sanitize(tc.in))
		})
	}
}

const cleanDocument = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Sunrise Bakery</title>
<style>
  body { font-family: Georgia, serif; margin: 0; }
  .hero { background: linear-gradient(135deg, #f6d365, #fda085); padding: 4rem 2rem; }
  .btn:hover { transform: translateY(-2px); transition: transform .2s ease; }
</style>
</head>
<body>
<header class="hero"><h1>Sunrise Bakery</h1><p>Fresh bread every morning.</p></header>
<nav><a href="#menu">Menu</a> <a href="mailto:hello@sunrise.example">Contact</a></nav>
<section id="menu"><img src="https://images.example/bread.jpg" alt="Bread" loading="lazy"></section>
<footer><p>&copy; 2025 Sunrise Bakery</p></footer>
</body>
</html>`

func TestSanitize_CleanInputUnchanged(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name string
		in   string
	}{
		{"document", cleanDocument},
		{"text_with_on_word", `<p>Available online = yes</p>`},
		{"text_with_href_word", `<p>Set href=javascript:void in the docs</p>`},
		{"text_with_style_word", `<p>Our style = expression(of joy)</p>`},
		{"handler_text_in_value", `<img alt="say onclick=hi" src="a.png">`},
		{"attr_named_on", `<input on="1">`},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.in, Sanitize(tc.in))
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		`<script>alert(1)</script><h1>Welcome</h1>`,
		`<a href="javascript:alert(1)" onclick="x()">a</a>`,
		`<scr<script></script>ipt>alert(1)</script>`,
		`<svg/onload=alert(1)><style>a{b:expression(c)}</style>`,
		`<img src="x"/onerror="alert(1)"><a href="/a"/onclick=alert(1)>a</a>`,
		`<a href="data:text/html,<script>alert(1)</script>">x</a>`,
		strings.Repeat(`<scr`, 8) + `<script></script>` + strings.Repeat(`ipt>`, 8),
		cleanDocument,
	}

	for _, in := range inputs {
		once := Sanitize(in)
		twice := Sanitize(once)
		require.Equal(t, once, twice, "input: %q", in)
	}
}

func TestSanitize_DeeplyNestedReassemblyIsEscaped(t *testing.T) {
	t.Parallel()

	in := strings.Repeat(`<scr`, 8) + `<script></script>` + strings.Repeat(`ipt>`, 8) + `alert(1)`
	out := Sanitize(in)

	require.NotContains(t, strings.ToLower(out), "<script")
}
