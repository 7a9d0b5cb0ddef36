// Package render builds the dashboard HTML from records using x/net/html
// node trees, so every title and attribute is escaped by the renderer.
package render

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/APerson241/pending-subs/internal/afc"
	"github.com/APerson241/pending-subs/internal/model"
)

const DefaultArticleBase = "https://en.wikipedia.org/wiki/"

type PageData struct {
	Records     []model.Record // already filtered
	Total       int            // records before filtering
	Required    model.TagSet
	Query       string
	GeneratedAt time.Time
	Error       string
	ArticleBase string
}

// FilterStats is the one-line summary shown above the table.
func FilterStats(total, shown int) string {
	s := fmt.Sprintf("There are %d submissions", total)
	switch {
	case shown == total:
		return s + "."
	case shown == 0:
		return s + "; the selected filters don't match any of them."
	case shown == 1:
		return s + "; 1 matches the selected filters."
	default:
		return fmt.Sprintf("%s; %d match the selected filters.", s, shown)
	}
}

// ArticleURL links a title under base, escaping each path segment.
func ArticleURL(base, title string) string {
	if base == "" {
		base = DefaultArticleBase
	}
	segs := strings.Split(strings.ReplaceAll(title, " ", "_"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return base + strings.Join(segs, "/")
}

// Table writes just the results table.
func Table(w io.Writer, records []model.Record, articleBase string) error {
	return html.Render(w, tableNode(records, articleBase))
}

// Page writes the full dashboard document.
func Page(w io.Writer, data PageData) error {
	if _, err := io.WriteString(w, "<!DOCTYPE html>\n"); err != nil {
		return err
	}
	return html.Render(w, pageNode(data))
}

func pageNode(data PageData) *html.Node {
	root := el(atom.Html, "lang", "en")
	head := el(atom.Head)
	head.AppendChild(el(atom.Meta, "charset", "utf-8"))
	head.AppendChild(withText(el(atom.Title), "Pending AfC submissions"))
	root.AppendChild(head)

	body := el(atom.Body)
	body.AppendChild(withText(el(atom.H1), "Pending AfC submissions"))
	if !data.GeneratedAt.IsZero() {
		body.AppendChild(withText(el(atom.P, "id", "asof"),
			data.GeneratedAt.UTC().Format("Generated at 15:04, 2 January 2006 (UTC).")))
	}
	errDiv := el(atom.Div, "id", "error")
	if data.Error != "" {
		errDiv.AppendChild(text(data.Error))
	}
	body.AppendChild(errDiv)
	body.AppendChild(filterForm(data.Required, data.Query))
	body.AppendChild(withText(el(atom.P, "id", "filter-stats"), FilterStats(data.Total, len(data.Records))))
	body.AppendChild(tableNode(data.Records, data.ArticleBase))
	root.AppendChild(body)
	return root
}

func filterForm(required model.TagSet, query string) *html.Node {
	form := el(atom.Form, "method", "get", "action", "/")
	for _, n := range afc.KnownNotes {
		id := "filter-" + n.Name
		attrs := []string{"id", id, "name", "tag", "value", n.Name, "type", "checkbox"}
		if required.Has(n.Code) {
			attrs = append(attrs, "checked", "checked")
		}
		form.AppendChild(el(atom.Input, attrs...))
		form.AppendChild(withText(el(atom.Label, "for", id), n.Name))
	}
	form.AppendChild(el(atom.Input, "type", "search", "name", "q", "value", query, "placeholder", "Search titles"))
	form.AppendChild(withText(el(atom.Button, "type", "submit"), "Filter"))
	return form
}

func tableNode(records []model.Record, articleBase string) *html.Node {
	table := el(atom.Table, "id", "result")
	header := el(atom.Tr)
	for _, h := range []string{"Submission", "Notes", "Status"} {
		header.AppendChild(withText(el(atom.Th), h))
	}
	table.AppendChild(header)

	for _, rec := range records {
		tr := el(atom.Tr)

		title := el(atom.Td)
		title.AppendChild(withText(el(atom.A, "href", ArticleURL(articleBase, rec.Title)), rec.Title))
		tr.AppendChild(title)

		tr.AppendChild(withText(el(atom.Td), strings.Join(afc.NoteNames(rec.Tags), ", ")))

		status := rec.Status
		if status == "" {
			status = model.StatusUnknown
		}
		attrs := []string{"id", model.StatusCellID(rec.Title)}
		if status == model.StatusPending {
			attrs = append(attrs, "class", "pending")
		}
		tr.AppendChild(withText(el(atom.Td, attrs...), string(status)))

		table.AppendChild(tr)
	}
	return table
}

// el builds an element; attrs alternate key and value.
func el(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func withText(n *html.Node, s string) *html.Node {
	n.AppendChild(text(s))
	return n
}
