package resolver

import (
	"context"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/agritox/agritox/internal/core"
	"github.com/agritox/agritox/internal/core/markup"
	"github.com/agritox/agritox/internal/core/source"
)

const duckDuckGoDefaultBase = "https://html.duckduckgo.com/html/"

// SearchResult is one ranked free-text search hit.
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet,omitempty"`
	URL     string `json:"url,omitempty"`
}

// Text returns the title and snippet joined for pattern matching.
func (r SearchResult) Text() string {
	if r.Snippet == "" {
		return r.Title
	}
	return r.Title + " " + r.Snippet
}

// DuckDuckGoSearch queries the DuckDuckGo HTML endpoint.
type DuckDuckGoSearch struct {
	Requester source.Requester
	BaseURL   string
}

// Search posts query and returns results in page order.
func (d *DuckDuckGoSearch) Search(ctx context.Context, query string) ([]SearchResult, error) {
	target := source.ParseBase(d.BaseURL, duckDuckGoDefaultBase)
	form := url.Values{}
	form.Set("q", query)

	resp, err := d.Requester.PostForm(ctx, "duckduckgo search", target, form, source.HTMLAccept())
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, core.StatusError("duckduckgo search", resp.StatusCode)
	}

	doc, err := markup.Parse(resp.Body)
	if err != nil {
		return nil, core.ParseError("duckduckgo search", err)
	}
	return parseDuckDuckGo(doc), nil
}

// parseDuckDuckGo pairs each result__a title link with the next
// result__snippet that follows it.
func parseDuckDuckGo(doc *html.Node) []SearchResult {
	var results []SearchResult
	markup.Walk(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		switch {
		case n.Data == "a" && markup.HasClass(n, "result__a"):
			title := markup.Text(n)
			if title == "" {
				return false
			}
			results = append(results, SearchResult{Title: title, URL: resultLink(markup.Attr(n, "href"))})
			return false
		case markup.HasClass(n, "result__snippet"):
			if len(results) > 0 && results[len(results)-1].Snippet == "" {
				results[len(results)-1].Snippet = markup.Text(n)
			}
			return false
		}
		return true
	})
	return results
}

// resultLink unwraps DuckDuckGo redirect links of the form /l/?uddg=<target>.
func resultLink(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := parsed.Query().Get("uddg"); target != "" && strings.HasPrefix(parsed.Path, "/l/") {
		return target
	}
	if parsed.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}
