package search

import (
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// Document is one searchable submission, keyed by its row key.
type Document struct {
	Key  string
	Text string
}

// Index is a small TF-IDF index over submission titles.
type Index struct {
	mu        sync.RWMutex
	entries   map[string]map[string]int // term -> row key -> count
	docLen    map[string]int            // row key -> total token count
	totalDocs int
}

func NewIndex() *Index {
	return &Index{
		entries: make(map[string]map[string]int),
		docLen:  make(map[string]int),
	}
}

// Tokenize lowercases text and splits it on spaces, punctuation and the
// namespace colon. Single characters are dropped.
func Tokenize(text string) []string {
	var tokens []string
	f := func(c rune) bool {
		return unicode.IsSpace(c) || unicode.IsPunct(c) || unicode.IsSymbol(c)
	}
	for _, token := range strings.FieldsFunc(text, f) {
		t := strings.ToLower(token)
		if len([]rune(t)) >= 2 {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// Rebuild replaces the whole index with documents. Keys are expected to be
// unique.
func (i *Index) Rebuild(documents []Document) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.entries = make(map[string]map[string]int)
	i.docLen = make(map[string]int, len(documents))
	i.totalDocs = len(documents)
	for _, doc := range documents {
		terms := Tokenize(doc.Text)
		i.docLen[doc.Key] = len(terms)
		for _, term := range terms {
			if _, ok := i.entries[term]; !ok {
				i.entries[term] = make(map[string]int)
			}
			i.entries[term][doc.Key]++
		}
	}
}

type Result struct {
	Key   string
	Score float64
}

// Search returns the documents matching every query term, best first. A
// query term matches indexed terms it is a prefix of, so "fo" finds "foo".
func (i *Index) Search(query string) []Result {
	i.mu.RLock()
	defer i.mu.RUnlock()

	terms := uniqueTerms(Tokenize(query))
	if len(terms) == 0 || i.totalDocs == 0 {
		return nil
	}

	scores := map[string]float64{}
	hits := map[string]int{} // row key -> query terms matched
	n := float64(i.totalDocs)
	for _, qt := range terms {
		matched := map[string]struct{}{}
		for term, postings := range i.entries {
			if !strings.HasPrefix(term, qt) {
				continue
			}
			df := float64(len(postings))
			idf := math.Log((n+1)/(df+1)) + 1
			for key, count := range postings {
				matched[key] = struct{}{}
				if dl := i.docLen[key]; dl > 0 {
					scores[key] += float64(count) / float64(dl) * idf
				}
			}
		}
		for key := range matched {
			hits[key]++
		}
	}

	results := make([]Result, 0, len(hits))
	for key, h := range hits {
		if h == len(terms) {
			results = append(results, Result{Key: key, Score: scores[key]})
		}
	}
	sort.Slice(results, func(a, b int) bool {
		if results[a].Score == results[b].Score {
			return results[a].Key < results[b].Key
		}
		return results[a].Score > results[b].Score
	})
	return results
}

func uniqueTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0]
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
