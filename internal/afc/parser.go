// Package afc parses the AfC statistics wikitext into submission records.
package afc

import (
	"fmt"
	"strings"

	"github.com/APerson241/pending-subs/internal/model"
)

const (
	DefaultSentinel = "{{AfC statistics/row"

	titleMarker     = "t"
	statusKeyMarker = "si"
)

// DefaultExcludedTitles are project pages the statistics table lists
// alongside real submissions.
var DefaultExcludedTitles = []string{
	"Wikipedia:Articles for creation/Redirects",
	"Wikipedia:Files for upload",
}

// MalformedRecordError describes a candidate line that could not become a
// record. Such lines are skipped, not fatal.
type MalformedRecordError struct {
	Line   int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

type Options struct {
	Sentinel       string
	ExcludedTitles []string
}

type Parser struct {
	sentinel string
	excluded map[string]struct{}
}

type Result struct {
	Records    []model.Record
	Malformed  []*MalformedRecordError
	Candidates int
	Excluded   int
}

func New(opts Options) *Parser {
	sentinel := opts.Sentinel
	if sentinel == "" {
		sentinel = DefaultSentinel
	}
	excluded := make(map[string]struct{}, len(opts.ExcludedTitles))
	for _, t := range opts.ExcludedTitles {
		excluded[model.NormalizeTitle(t)] = struct{}{}
	}
	return &Parser{
		sentinel: strings.ToLower(sentinel),
		excluded: excluded,
	}
}

// Parse uses the default sentinel and exclusion list.
func Parse(raw string, required model.TagSet) Result {
	return New(Options{ExcludedTitles: DefaultExcludedTitles}).Parse(raw, required)
}

// Parse extracts one record per candidate line, in line order, keeping only
// records whose tags include every required tag.
func (p *Parser) Parse(raw string, required model.TagSet) Result {
	var res Result
	seen := make(map[string]int)
	rowKeys := make(map[string]int)

	for i, line := range strings.Split(raw, "\n") {
		lineNo := i + 1
		line = strings.TrimRight(strings.TrimLeft(line, " \t"), "\r")
		if !strings.HasPrefix(strings.ToLower(line), p.sentinel) {
			continue
		}
		res.Candidates++

		title, ok := markerValue(line, titleMarker)
		if !ok {
			res.Malformed = append(res.Malformed, &MalformedRecordError{Line: lineNo, Reason: "missing |t= marker"})
			continue
		}
		key, ok := markerValue(line, statusKeyMarker)
		if !ok {
			res.Malformed = append(res.Malformed, &MalformedRecordError{Line: lineNo, Reason: "missing |si= marker"})
			continue
		}
		title = model.NormalizeTitle(title)
		if first, dup := seen[title]; dup {
			res.Malformed = append(res.Malformed, &MalformedRecordError{
				Line:   lineNo,
				Reason: fmt.Sprintf("duplicate title %q (first on line %d)", title, first),
			})
			continue
		}
		seen[title] = lineNo

		if _, skip := p.excluded[title]; skip {
			res.Excluded++
			continue
		}

		// row keys become element ids and board keys, so they must be unique
		rowKey := model.RowKey(title)
		if first, clash := rowKeys[rowKey]; clash {
			res.Malformed = append(res.Malformed, &MalformedRecordError{
				Line:   lineNo,
				Reason: fmt.Sprintf("title %q shares row key %q with line %d", title, rowKey, first),
			})
			continue
		}
		rowKeys[rowKey] = lineNo

		tags := lineTags(line)
		if !tags.ContainsAll(required) {
			continue
		}
		res.Records = append(res.Records, model.Record{
			Title:     title,
			RowKey:    rowKey,
			Tags:      tags,
			StatusKey: key,
			Status:    model.StatusUnknown,
			Line:      lineNo,
		})
	}
	return res
}

// markerValue returns the value of |name=value; the value runs to the next
// pipe or closing brace.
func markerValue(line, name string) (string, bool) {
	needle := "|" + name + "="
	idx := strings.Index(line, needle)
	if idx < 0 {
		return "", false
	}
	rest := line[idx+len(needle):]
	if end := strings.IndexAny(rest, "|}"); end >= 0 {
		rest = rest[:end]
	}
	rest = strings.TrimSpace(rest)
	return rest, rest != ""
}

func lineTags(line string) model.TagSet {
	tags := model.TagSet{}
	for _, n := range KnownNotes {
		if hasFlag(line, n.Code) {
			tags[n.Code] = struct{}{}
		}
	}
	return tags
}

// hasFlag reports whether |code appears as a whole parameter name, so that
// |no does not match inside |nocat.
func hasFlag(line, code string) bool {
	needle := "|" + code
	off := 0
	for {
		i := strings.Index(line[off:], needle)
		if i < 0 {
			return false
		}
		end := off + i + len(needle)
		if end == len(line) {
			return true
		}
		switch line[end] {
		case '|', '=', '}', ' ', '\t':
			return true
		}
		off = end
	}
}
