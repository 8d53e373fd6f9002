package document

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"golang.org/x/net/html"
)

// IsURL reports whether src names a web page rather than a file.
func IsURL(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// Fetch downloads a web page and parses it as served.
func Fetch(ctx context.Context, url string) (*html.Node, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", url, resp.Status)
	}
	return html.Parse(resp.Body)
}

// Render loads a web page in headless Chrome and parses the DOM after
// scripts have run.
func Render(ctx context.Context, url string) (*html.Node, error) {
	ctx, cancel := chromedp.NewContext(ctx)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, 60*time.Second)
	defer cancelTimeout()

	var out string
	if err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.OuterHTML("html", &out, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("render %s: %w", url, err)
	}
	return Parse(out)
}

// Open loads src from a URL or a file. rendered selects headless Chrome
// for URLs.
func Open(ctx context.Context, src string, rendered bool) (*html.Node, error) {
	if IsURL(src) {
		if rendered {
			return Render(ctx, src)
		}
		return Fetch(ctx, src)
	}
	return Load(src)
}
