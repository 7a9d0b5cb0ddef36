package afc

import (
	"fmt"
	"strings"

	"github.com/APerson241/pending-subs/internal/model"
)

// Note pairs a short tag code with the note name shown to readers.
type Note struct {
	Code string
	Name string
}

// KnownNotes lists every tag code the parser recognizes, in display order.
var KnownNotes = []Note{
	{Code: "nc", Name: "copyvio"},
	{Code: "ni", Name: "no-inline"},
	{Code: "nu", Name: "unsourced"},
	{Code: "ns", Name: "short"},
	{Code: "nr", Name: "resubmit"},
	{Code: "no", Name: "veryold"},
	{Code: "nb", Name: "userspace"},
	{Code: "np", Name: "no-projs"},
}

// NoteName returns the display name for code, or code itself if unknown.
func NoteName(code string) string {
	for _, n := range KnownNotes {
		if n.Code == code {
			return n.Name
		}
	}
	return code
}

// NoteNames renders a tag set as display names in KnownNotes order.
func NoteNames(tags model.TagSet) []string {
	out := make([]string, 0, len(tags))
	for _, n := range KnownNotes {
		if tags.Has(n.Code) {
			out = append(out, n.Name)
		}
	}
	return out
}

// ParseRequired turns user-supplied filter values into a tag set. Each value
// may be a code ("nc") or a note name ("copyvio"); blanks are ignored.
func ParseRequired(values []string) (model.TagSet, error) {
	out := model.TagSet{}
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		code, ok := lookupCode(v)
		if !ok {
			return nil, fmt.Errorf("unknown tag %q", v)
		}
		out[code] = struct{}{}
	}
	return out, nil
}

func lookupCode(v string) (string, bool) {
	for _, n := range KnownNotes {
		if n.Code == v || n.Name == v {
			return n.Code, true
		}
	}
	return "", false
}
