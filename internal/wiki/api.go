package wiki

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/APerson241/pending-subs/internal/model"
)

// Response is the top-level API object. Exactly one of Error or Query is
// expected to be set.
type Response struct {
	RequestID string       `json:"requestid"`
	Error     *APIError    `json:"error,omitempty"`
	Query     *QueryResult `json:"query,omitempty"`
}

type QueryResult struct {
	Pages     []Page              `json:"pages"`
	BadRevIDs map[string]BadRevID `json:"badrevids,omitempty"`
}

type BadRevID struct {
	RevID   int64 `json:"revid"`
	Missing bool  `json:"missing"`
}

type Page struct {
	PageID     int64      `json:"pageid"`
	NS         int        `json:"ns"`
	Title      string     `json:"title"`
	Missing    bool       `json:"missing,omitempty"`
	Invalid    bool       `json:"invalid,omitempty"`
	Categories []Category `json:"categories,omitempty"`
	Revisions  []Revision `json:"revisions,omitempty"`
}

type Category struct {
	NS    int    `json:"ns"`
	Title string `json:"title"`
}

type Revision struct {
	RevID int64           `json:"revid"`
	Slots map[string]Slot `json:"slots,omitempty"`
}

type Slot struct {
	ContentModel string `json:"contentmodel"`
	Content      string `json:"content"`
}

// Pages returns the nested page collection or ErrNoData when the response
// does not carry one.
func (r *Response) Pages() ([]Page, error) {
	if r == nil || r.Query == nil || r.Query.Pages == nil {
		return nil, ErrNoData
	}
	return r.Query.Pages, nil
}

// InCategory reports whether the page lists the given category.
func (p Page) InCategory(category string) bool {
	want := model.NormalizeTitle(category)
	for _, c := range p.Categories {
		if model.NormalizeTitle(c.Title) == want {
			return true
		}
	}
	return false
}

// PageTextQuery asks for the current main-slot wikitext of one page.
func PageTextQuery(title string) Query {
	return Query{
		Action: "query",
		Params: url.Values{
			"prop":    {"revisions"},
			"rvprop":  {"content"},
			"rvslots": {"main"},
			"titles":  {title},
		},
	}
}

// StatusQuery asks which of the given revisions' pages are in category.
// clcategories restricts the returned categories to the one we test for.
func StatusQuery(revIDs []string, category string) Query {
	return Query{
		Action: "query",
		Params: url.Values{
			"prop":         {"categories"},
			"revids":       {strings.Join(revIDs, "|")},
			"clcategories": {category},
			"cllimit":      {"max"},
		},
	}
}

// FetchPageText returns the wikitext of title.
func FetchPageText(ctx context.Context, f Fetcher, title string) (string, error) {
	resp, err := f.Fetch(ctx, PageTextQuery(title))
	if err != nil {
		return "", err
	}
	pages, err := resp.Pages()
	if err != nil {
		return "", err
	}
	if len(pages) == 0 {
		return "", ErrNoData
	}
	page := pages[0]
	if page.Missing || page.Invalid {
		return "", fmt.Errorf("%w: page %q does not exist", ErrNoData, title)
	}
	if len(page.Revisions) == 0 {
		return "", fmt.Errorf("%w: page %q has no revisions", ErrNoData, title)
	}
	main, ok := page.Revisions[0].Slots["main"]
	if !ok {
		return "", fmt.Errorf("%w: page %q has no main slot", ErrNoData, title)
	}
	return main.Content, nil
}
