// pages загружает веб-страницы-референсы и извлекает из них краткое
// содержание: заголовок, описание и начало видимого текста.
//
// Адреса внутренних сетей (loopback, private, link-local и т.п.)
// отклоняются на этапе соединения, после разрешения имени, поэтому
// обойти проверку через DNS или редирект нельзя.
package pages

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/pribylovaa/go-site-generator/internal/clients"
	"github.com/pribylovaa/go-site-generator/internal/models"
	"github.com/pribylovaa/go-site-generator/internal/pkg/log"
	"github.com/pribylovaa/go-site-generator/internal/pkg/redact"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	maxRedirects    = 5
	userAgent       = "site-generator-reference-fetcher/1.0"
	defaultMaxBody  = 2 << 20
	defaultExcerpt  = 1500
	defaultTimeout  = 10 * time.Second
	maxTitleRunes   = 300
	maxDescripRunes = 600
)

// Options — параметры Fetcher.
type Options struct {
	AllowPrivateNetworks bool
	MaxBodyBytes         int64
	MaxExcerptChars      int
	Timeout              time.Duration
}

// Fetcher реализует clients.PageFetcher.
type Fetcher struct {
	http       *http.Client
	maxBody    int64
	maxExcerpt int
}

var _ clients.PageFetcher = (*Fetcher)(nil)

// New создаёт Fetcher со своим транспортом и проверкой адресов.
func New(opts Options) *Fetcher {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBody
	}

	if opts.MaxExcerptChars <= 0 {
		opts.MaxExcerptChars = defaultExcerpt
	}

	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	dialer := &net.Dialer{Timeout: 5 * time.Second}
	if !opts.AllowPrivateNetworks {
		dialer.Control = guardControl
	}

	transport := &http.Transport{
		Proxy:                 nil,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: opts.Timeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       30 * time.Second,
	}

	return &Fetcher{
		http: &http.Client{
			Timeout:       opts.Timeout,
			Transport:     transport,
			CheckRedirect: checkRedirect,
		},
		maxBody:    opts.MaxBodyBytes,
		maxExcerpt: opts.MaxExcerptChars,
	}
}

func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}

	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return clients.ErrInvalidURL
	}

	return nil
}

// guardControl вызывается для каждого соединения с уже разрешённым адресом.
func guardControl(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return clients.ErrBlockedAddress
	}

	ip := net.ParseIP(host)
	if ip == nil || IsBlockedIP(ip) {
		return clients.ErrBlockedAddress
	}

	return nil
}

// cgnat — 100.64.0.0/10 (shared address space).
var cgnat = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

// IsBlockedIP — адрес не из публичного интернета.
func IsBlockedIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified() ||
		cgnat.Contains(ip)
}

// ValidateURL разбирает адрес и проверяет схему и наличие хоста.
func ValidateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, clients.ErrInvalidURL
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return nil, clients.ErrInvalidURL
	}

	u.Fragment = ""

	return u, nil
}

// Summarize загружает страницу и возвращает её краткое содержание.
func (f *Fetcher) Summarize(ctx context.Context, rawURL string) (*models.PageSummary, error) {
	const op = "clients/pages/Summarize"

	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: new_request: %w", op, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.http.Do(req)
	if err != nil {
		log.From(ctx).Warn("reference_fetch_failed",
			"op", op,
			"url", redact.URL(u.String()),
			"err", err.Error(),
		)

		if errors.Is(err, clients.ErrBlockedAddress) {
			return nil, fmt.Errorf("%s: %w", op, clients.ErrBlockedAddress)
		}
		if errors.Is(err, clients.ErrInvalidURL) {
			return nil, fmt.Errorf("%s: %w", op, clients.ErrInvalidURL)
		}

		return nil, fmt.Errorf("%s: do: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, f.maxBody))
		return nil, fmt.Errorf("%s: %w", op, &clients.StatusError{Status: resp.StatusCode})
	}

	if !isHTML(resp.Header.Get("Content-Type")) {
		return nil, fmt.Errorf("%s: %w", op, clients.ErrUnsupportedContent)
	}

	summary, err := f.parse(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return nil, fmt.Errorf("%s: parse: %w", op, err)
	}

	summary.URL = resp.Request.URL.String()

	return summary, nil
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return false
	}

	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mt == "text/html" || mt == "application/xhtml+xml"
}

// parse проходит токенайзером по документу. Текст внутри script, style,
// noscript, template и svg в выдержку не попадает.
func (f *Fetcher) parse(r io.Reader) (*models.PageSummary, error) {
	z := html.NewTokenizer(r)

	var (
		out       models.PageSummary
		ogTitle   string
		inTitle   bool
		skipDepth int
		text      strings.Builder
	)

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, err
			}

			if out.Title == "" {
				out.Title = ogTitle
			}
			out.Title = truncate(collapse(out.Title), maxTitleRunes)
			out.Description = truncate(collapse(out.Description), maxDescripRunes)
			out.Excerpt = truncate(collapse(text.String()), f.maxExcerpt)

			return &out, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()

			switch tok.DataAtom {
			case atom.Title:
				inTitle = tt == html.StartTagToken
			case atom.Meta:
				name, content := metaPair(tok)
				switch name {
				case "description", "og:description":
					if out.Description == "" {
						out.Description = content
					}
				case "og:title":
					ogTitle = content
				}
			case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Svg:
				if tt == html.StartTagToken {
					skipDepth++
				}
			}

		case html.EndTagToken:
			tok := z.Token()

			switch tok.DataAtom {
			case atom.Title:
				inTitle = false
			case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Svg:
				if skipDepth > 0 {
					skipDepth--
				}
			}

		case html.TextToken:
			switch {
			case inTitle:
				if out.Title == "" {
					out.Title = string(z.Text())
				}
			case skipDepth == 0 && utf8.RuneCountInString(text.String()) < f.maxExcerpt*2:
				text.Write(z.Text())
				text.WriteByte(' ')
			}
		}
	}
}

func metaPair(tok html.Token) (string, string) {
	var name, content string

	for _, a := range tok.Attr {
		switch strings.ToLower(a.Key) {
		case "name", "property":
			name = strings.ToLower(strings.TrimSpace(a.Val))
		case "content":
			content = a.Val
		}
	}

	return name, content
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	r := []rune(s)

	return strings.TrimSpace(string(r[:n])) + "…"
}
