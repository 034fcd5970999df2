package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	// maxBodyBytes caps how much of a source page is read into memory.
	maxBodyBytes = 2 << 20

	// jsRedirectTextLimit guards against treating single page apps as
	// redirect interstitials. A script-driven redirect is only followed
	// when the page shows less visible text than this.
	jsRedirectTextLimit = 200
)

var (
	errTooManyRedirects = errors.New("too many redirects")

	commentRe    = regexp.MustCompile(`(?s)<!--.*?-->`)
	jsRedirectRe = regexp.MustCompile(`(?:window\.)?location(?:\.href)?\s*=\s*["']([^"']+)["']|location\.(?:replace|assign)\(\s*["']([^"']+)["']\s*\)`)
)

// keptAttrs are the only element attributes that survive reduction. class
// and id feed selector generation, href and datetime feed extraction.
var keptAttrs = map[string]bool{
	"class":    true,
	"id":       true,
	"href":     true,
	"datetime": true,
}

// FetchedPage is the result of fetching one HTML page, including the full
// redirect chain that led to the final URL.
type FetchedPage struct {
	RequestedURL string
	URL          string
	StatusCode   int
	HTML         string
	Redirects    []RedirectHop
	FetchedAt    time.Time
}

// ReducedPage is the compacted rendition of a fetched page that fits the AI
// prompt byte budget.
type ReducedPage struct {
	HTML         string
	OriginalSize int
	ReducedSize  int
	Truncated    bool
}

// PageFetcher fetches HTML pages while recording HTTP, meta refresh and
// script driven redirects, bounded by a single shared hop budget.
type PageFetcher struct {
	transport    http.RoundTripper
	timeout      time.Duration
	userAgent    string
	maxRedirects int
}

func NewPageFetcher(userAgent string, timeout time.Duration, maxRedirects int) *PageFetcher {
	return &PageFetcher{
		transport:    http.DefaultTransport,
		timeout:      timeout,
		userAgent:    userAgent,
		maxRedirects: maxRedirects,
	}
}

// Fetch retrieves rawURL and follows declarative and script redirects until
// it lands on a stable page or exhausts the hop budget.
func (f *PageFetcher) Fetch(ctx context.Context, rawURL string) (*FetchedPage, error) {
	hops := []RedirectHop{}
	current := rawURL

	for {
		page, err := f.get(ctx, current, &hops)
		if err != nil {
			return nil, err
		}

		target, kind := refreshTarget(page.HTML, page.URL)
		if target == "" || target == page.URL {
			page.RequestedURL = rawURL
			page.Redirects = hops
			return page, nil
		}
		if len(hops) >= f.maxRedirects {
			return nil, fmt.Errorf("%w: redirect limit %d exceeded", ErrSourceUnreadable, f.maxRedirects)
		}
		hops = append(hops, RedirectHop{From: page.URL, To: target, Kind: kind})
		current = target
	}
}

// get performs one GET with HTTP-level redirects tracked against the shared
// hop budget.
func (f *PageFetcher) get(ctx context.Context, rawURL string, hops *[]RedirectHop) (*FetchedPage, error) {
	client := &http.Client{
		Transport: f.transport,
		Timeout:   f.timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(*hops) >= f.maxRedirects {
				return errTooManyRedirects
			}
			*hops = append(*hops, RedirectHop{
				From: via[len(via)-1].URL.String(),
				To:   req.URL.String(),
				Kind: RedirectKindHTTP,
			})
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, errTooManyRedirects) {
			return nil, fmt.Errorf("%w: redirect limit %d exceeded", ErrSourceUnreadable, f.maxRedirects)
		}
		return nil, fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: http status %d fetching %s", ErrSourceUnreadable, resp.StatusCode, rawURL)
	}
	if err := checkContentType(resp.Header.Get("Content-Type")); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
	}

	return &FetchedPage{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		HTML:       string(body),
		FetchedAt:  time.Now(),
	}, nil
}

func checkContentType(header string) error {
	if header == "" {
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return nil
	}
	switch mediaType {
	case "text/html", "application/xhtml+xml":
		return nil
	}
	return fmt.Errorf("%w: content type %q is not an HTML page", ErrSourceUnreadable, mediaType)
}

// refreshTarget inspects page content for a meta refresh or an
// unconditional-looking script redirect and returns the absolute target URL.
func refreshTarget(pageHTML, pageURL string) (string, string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return "", ""
	}

	base, _ := url.Parse(pageURL)

	var metaTarget string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.EqualFold(s.AttrOr("http-equiv", ""), "refresh") {
			return true
		}
		if target := refreshContentURL(s.AttrOr("content", "")); target != "" {
			metaTarget = resolveURL(base, target)
			return false
		}
		return true
	})
	if metaTarget != "" {
		return metaTarget, RedirectKindMetaRefresh
	}

	// script redirects only count on near-empty interstitial pages
	if len(cleanText(doc.Text())) >= jsRedirectTextLimit {
		return "", ""
	}
	var jsTarget string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		match := jsRedirectRe.FindStringSubmatch(s.Text())
		if match == nil {
			return true
		}
		target := match[1]
		if target == "" {
			target = match[2]
		}
		if target != "" {
			jsTarget = resolveURL(base, target)
			return false
		}
		return true
	})
	if jsTarget != "" {
		return jsTarget, RedirectKindJavaScript
	}
	return "", ""
}

// refreshContentURL parses the content attribute of a meta refresh tag,
// e.g. "0; url=/new-location".
func refreshContentURL(content string) string {
	for _, part := range strings.Split(content, ";") {
		part = strings.TrimSpace(part)
		if len(part) > 4 && strings.EqualFold(part[:4], "url=") {
			return strings.Trim(part[4:], `"' `)
		}
	}
	return ""
}

// Reduce compacts raw page HTML for AI analysis: comments, scripts, styles
// and noise attributes are stripped, whitespace collapsed and the result
// truncated to byteBudget on a rune boundary.
func Reduce(pageHTML string, byteBudget int) (*ReducedPage, error) {
	originalSize := len(pageHTML)
	pageHTML = commentRe.ReplaceAllString(pageHTML, "")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
	}

	// header stays, listing markup like article > header > h3 carries titles
	doc.Find("script,style,noscript,iframe,svg,form,link,object,embed,nav,footer").Remove()

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		if node.Type != html.ElementNode {
			return
		}
		kept := node.Attr[:0]
		for _, attr := range node.Attr {
			if keptAttrs[attr.Key] {
				kept = append(kept, attr)
			}
		}
		node.Attr = kept
	})

	reduced, err := documentHTML(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
	}
	reduced = strings.TrimSpace(whitespaceRe.ReplaceAllString(reduced, " "))

	truncated := false
	if len(reduced) > byteBudget {
		cut := byteBudget
		for cut > 0 && !utf8.RuneStart(reduced[cut]) {
			cut--
		}
		reduced = reduced[:cut]
		truncated = true
	}

	return &ReducedPage{
		HTML:         reduced,
		OriginalSize: originalSize,
		ReducedSize:  len(reduced),
		Truncated:    truncated,
	}, nil
}

// FetchAndReduce is the analyzer entry point: one bounded fetch followed by
// reduction to the prompt budget.
func (f *PageFetcher) FetchAndReduce(ctx context.Context, rawURL string, byteBudget int) (*FetchedPage, *ReducedPage, error) {
	page, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return nil, nil, err
	}
	reduced, err := Reduce(page.HTML, byteBudget)
	if err != nil {
		return nil, nil, err
	}
	return page, reduced, nil
}

func documentHTML(doc *goquery.Document) (string, error) {
	body := doc.Find("body")
	if body.Length() > 0 {
		return body.Html()
	}
	return doc.Html()
}
