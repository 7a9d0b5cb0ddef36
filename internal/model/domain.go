package model

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

type Status string

const (
	StatusUnknown  Status = "Unknown"
	StatusPending  Status = "Pending"
	StatusReviewed Status = "Reviewed"
)

type RunStatus string

const (
	RunStatusPending   RunStatus = "PENDING"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
)

// Record is one pending submission parsed from the statistics page.
type Record struct {
	Title     string `json:"title"`
	RowKey    string `json:"row_key"`
	Tags      TagSet `json:"tags"`
	StatusKey string `json:"status_key"`
	Status    Status `json:"status"`
	Line      int    `json:"line"`
}

type Run struct {
	ID         string    `json:"id"`
	Generation uint64    `json:"generation"`
	Status     RunStatus `json:"status"`

	Records   []Record `json:"records"`
	Malformed int      `json:"malformed"`
	Error     string   `json:"error,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// Counts returns how many records of the run are in each status.
func (r *Run) Counts() map[Status]int {
	out := map[Status]int{
		StatusUnknown:  0,
		StatusPending:  0,
		StatusReviewed: 0,
	}
	for _, rec := range r.Records {
		out[rec.Status]++
	}
	return out
}

// TagSet is a set of short tag codes. A nil TagSet is empty.
type TagSet map[string]struct{}

func NewTagSet(codes ...string) TagSet {
	s := make(TagSet, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

func (s TagSet) Has(code string) bool {
	_, ok := s[code]
	return ok
}

// ContainsAll reports whether every tag of required is in s.
// An empty required set is contained in every set.
func (s TagSet) ContainsAll(required TagSet) bool {
	for code := range required {
		if !s.Has(code) {
			return false
		}
	}
	return true
}

// Sorted returns the codes in lexical order.
func (s TagSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (s TagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *TagSet) UnmarshalJSON(data []byte) error {
	var codes []string
	if err := json.Unmarshal(data, &codes); err != nil {
		return err
	}
	*s = NewTagSet(codes...)
	return nil
}

var rowKeyReplacer = strings.NewReplacer(" ", "-", "_", "-", "'", "-", "+", "-")

// NormalizeTitle is the identity used to match a record against the pages
// the API returns: MediaWiki treats underscores and spaces alike.
func NormalizeTitle(t string) string {
	return strings.TrimSpace(strings.ReplaceAll(t, "_", " "))
}

// RowKey derives the row identifier used in element ids. It is lossy; two
// titles may share one, so it never identifies a record on its own.
func RowKey(title string) string {
	return rowKeyReplacer.Replace(title)
}

// StatusCellID is the element id of a record's status cell.
func StatusCellID(title string) string {
	return "status-" + RowKey(title)
}
