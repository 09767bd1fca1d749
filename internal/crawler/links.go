package crawler

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// listingIDSuffix matches the numeric listing identifier closing a detail URL.
var listingIDSuffix = regexp.MustCompile(`\d+/$`)

// IsListingURL reports whether link points to a listing detail page: a
// secure link under an "annunci" path ending in a numeric identifier and a
// trailing slash.
func IsListingURL(link string) bool {
	return strings.Contains(link, "https") &&
		strings.Contains(link, "annunci") &&
		listingIDSuffix.MatchString(link)
}

// scanListingLinks returns the listing links of an HTML page in document
// order. Relative hrefs are resolved against pageURL. When delay is positive
// it is slept before each anchor is examined; a cancelled context stops the
// scan and is returned.
func scanListingLinks(ctx context.Context, body []byte, pageURL *url.URL, delay time.Duration) ([]string, error) {
	if len(body) == 0 {
		return nil, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var (
		links   []string
		scanErr error
	)
	doc.Find("a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if delay > 0 {
			if err := sleep(ctx, delay); err != nil {
				scanErr = err
				return false
			}
		}
		href, ok := s.Attr("href")
		if !ok {
			return true
		}
		if link := resolveURL(pageURL, href); link != "" && IsListingURL(link) {
			links = append(links, link)
		}
		return true
	})
	return links, scanErr
}

// resolveURL resolves href against base. Non-navigational links resolve to "".
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

// normalizeURL returns the deduplication key of a URL: lower-case scheme and
// host, no fragment.
func normalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
