// Package providers adapts external systems (mail, calendar, scraped web
// pages) to the shapes pkg/pipeline and pkg/calendarsync consume. Each
// adapter is grounded on its original_source/ Python counterpart, ported
// to Go idioms and the teacher's interface-per-concern style.
package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ScrapedPage is the result of fetching and cleaning a web page, the
// go equivalent of scrape_url's result dictionary.
type ScrapedPage struct {
	URL         string
	Title       string
	Text        string
	HTML        string
	Links       []ScrapedLink
	ContentType string
}

// ScrapedLink is one absolute hyperlink found on a scraped page.
type ScrapedLink struct {
	URL  string
	Text string
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Scraper fetches a URL, strips script/style/nav/footer/header noise, and
// returns cleaned text plus the links found on the page (the "website"
// provider, spec §2/§6).
type Scraper struct {
	Timeout   time.Duration
	UserAgent string

	client *http.Client
}

func (s *Scraper) httpClient() *http.Client {
	if s.client != nil {
		return s.client
	}
	timeout := s.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	s.client = &http.Client{Timeout: timeout}
	return s.client
}

func (s *Scraper) userAgent() string {
	if s.UserAgent != "" {
		return s.UserAgent
	}
	return defaultUserAgent
}

// Scrape fetches the page at rawURL and returns its cleaned content.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (ScrapedPage, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ScrapedPage{}, fmt.Errorf("scraper: invalid url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ScrapedPage{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent())

	resp, err := s.httpClient().Do(req)
	if err != nil {
		return ScrapedPage{}, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return ScrapedPage{}, fmt.Errorf("scraper: %s returned status %d", rawURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ScrapedPage{}, fmt.Errorf("parsing html: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = "Untitled"
	}

	doc.Find("script, style, nav, footer, header").Remove()

	text := cleanText(doc.Find("body").Text())
	html, _ := doc.Html()

	var links []ScrapedLink
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if strings.HasPrefix(href, "http") || strings.HasPrefix(href, "//") {
			links = append(links, ScrapedLink{URL: href, Text: strings.TrimSpace(sel.Text())})
		}
	})

	return ScrapedPage{
		URL:         rawURL,
		Title:       title,
		Text:        text,
		HTML:        html,
		Links:       links,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// cleanText mirrors scrape_url's whitespace normalization: split on
// newlines, trim each line, drop empty lines, rejoin.
func cleanText(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
