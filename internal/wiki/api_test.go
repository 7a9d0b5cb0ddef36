package wiki

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	resp *Response
	err  error
	got  []Query
}

func (s *stubFetcher) Fetch(ctx context.Context, q Query) (*Response, error) {
	s.got = append(s.got, q)
	return s.resp, s.err
}

func decode(t *testing.T, body string) *Response {
	t.Helper()
	var r Response
	require.NoError(t, json.Unmarshal([]byte(body), &r))
	return &r
}

func TestResponsePagesNoData(t *testing.T) {
	_, err := decode(t, `{"batchcomplete":true}`).Pages()
	assert.ErrorIs(t, err, ErrNoData)

	_, err = decode(t, `{"query":{}}`).Pages()
	assert.ErrorIs(t, err, ErrNoData)

	pages, err := decode(t, `{"query":{"pages":[]}}`).Pages()
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestPageInCategory(t *testing.T) {
	r := decode(t, `{"query":{"pages":[
		{"pageid":1,"ns":118,"title":"Draft:Foo","categories":[{"ns":14,"title":"Category:Pending AfC submissions"}]},
		{"pageid":2,"ns":118,"title":"Draft:Bar"}
	]}}`)
	pages, err := r.Pages()
	require.NoError(t, err)
	assert.True(t, pages[0].InCategory("Category:Pending_AfC_submissions"))
	assert.False(t, pages[1].InCategory("Category:Pending AfC submissions"))
}

func TestFetchPageText(t *testing.T) {
	f := &stubFetcher{resp: decode(t, `{"query":{"pages":[
		{"pageid":1,"ns":10,"title":"Template:AfC statistics","revisions":[{"revid":9,"slots":{"main":{"contentmodel":"wikitext","content":"hello"}}}]}
	]}}`)}

	text, err := FetchPageText(context.Background(), f, "Template:AfC statistics")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	require.Len(t, f.got, 1)
	assert.Equal(t, "Template:AfC statistics", f.got[0].Params.Get("titles"))
	assert.Equal(t, "revisions", f.got[0].Params.Get("prop"))
}

func TestFetchPageTextMissing(t *testing.T) {
	f := &stubFetcher{resp: decode(t, `{"query":{"pages":[{"ns":10,"title":"Template:Nope","missing":true}]}}`)}
	_, err := FetchPageText(context.Background(), f, "Template:Nope")
	assert.ErrorIs(t, err, ErrNoData)

	f = &stubFetcher{resp: decode(t, `{"warnings":{}}`)}
	_, err = FetchPageText(context.Background(), f, "Template:Nope")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestStatusQuery(t *testing.T) {
	q := StatusQuery([]string{"10", "11"}, "Category:Pending AfC submissions")
	assert.Equal(t, "query", q.Action)
	assert.Equal(t, "10|11", q.Params.Get("revids"))
	assert.Equal(t, "Category:Pending AfC submissions", q.Params.Get("clcategories"))
	assert.Equal(t, "max", q.Params.Get("cllimit"))
}
