package httpapi

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testServer() *Server {
	return NewServer(zap.NewNop(), nil, nil)
}

func TestDecodeMonitorRequest(t *testing.T) {
	s := testServer()
	cases := []struct {
		body     string
		wantType string // empty means valid
		wantLoc  string
	}{
		{`{"url":"https://example.com"}`, "", ""},
		{`{"url":"http://localhost:8080/health"}`, "", ""},
		{`{"url":"https://EXAMPLE.com/path?q=1"}`, "", ""},
		{``, "missing", "body"},
		{`{}`, "missing", "body.url"},
		{`{"url":""}`, "missing", "body.url"},
		{`{"url":"not a url"}`, "url_parsing", "body.url"},
		{`{"url":"ftp://example.com"}`, "url_parsing", "body.url"},
		{`{"url":"example.com"}`, "url_parsing", "body.url"},
		{`{"url":42}`, "string_type", "body.url"},
		{`{"url":`, "json_invalid", "body"},
		{"{\"url\":\"https://example.com\"}\n", "", ""},
		{`{"url":"https://example.com"} junk`, "json_invalid", "body"},
		{`{"url":"https://example.com"}}`, "json_invalid", "body"},
		{`{"url":"https://a.example"} {"url":"https://b.example"}`, "json_invalid", "body"},
		{`{"url":"https://example.com/` + strings.Repeat("a", 2100) + `"}`, "url_too_long", "body.url"},
	}
	for _, c := range cases {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/monitor", strings.NewReader(c.body))
		got, errs := s.decodeMonitorRequest(rr, req)
		if c.wantType == "" {
			assert.Empty(t, errs, "body %q", c.body)
			assert.NotEmpty(t, got.URL)
			continue
		}
		require.Len(t, errs, 1, "body %q", c.body)
		assert.Equal(t, c.wantType, errs[0].Type, "body %q", c.body)
		assert.Equal(t, c.wantLoc, strings.Join(errs[0].Loc, "."), "body %q", c.body)
	}
}

func TestParsePageQuery(t *testing.T) {
	s := testServer()

	q, errs := s.parsePageQuery(httptest.NewRequest("GET", "/api/v1/results", nil))
	assert.Empty(t, errs)
	assert.Equal(t, pageQuery{Page: 1, PageSize: 10}, q)

	q, errs = s.parsePageQuery(httptest.NewRequest("GET", "/api/v1/results?page=3&page_size=100", nil))
	assert.Empty(t, errs)
	assert.Equal(t, pageQuery{Page: 3, PageSize: 100}, q)

	cases := map[string][]string{
		"page_size=101":        {"query.page_size:less_than_equal"},
		"page_size=0":          {"query.page_size:greater_than_equal"},
		"page=0":               {"query.page:greater_than_equal"},
		"page=-4&page_size=0":  {"query.page:greater_than_equal", "query.page_size:greater_than_equal"},
		"page=abc":             {"query.page:int_parsing"},
		"page=abc&page_size=0": {"query.page:int_parsing", "query.page_size:greater_than_equal"},
		"page_size=":           {"query.page_size:int_parsing"},
	}
	for raw, want := range cases {
		_, errs := s.parsePageQuery(httptest.NewRequest("GET", "/api/v1/results?"+raw, nil))
		var got []string
		for _, e := range errs {
			got = append(got, strings.Join(e.Loc, ".")+":"+e.Type)
		}
		assert.ElementsMatch(t, want, got, "query %q", raw)
	}
}

func TestParseSearchQuery(t *testing.T) {
	s := testServer()
	q, errs := s.parseSearchQuery(httptest.NewRequest("GET", "/api/v1/results/search?url=google", nil))
	assert.Empty(t, errs)
	assert.Equal(t, "google", q.URL)

	_, errs = s.parseSearchQuery(httptest.NewRequest("GET", "/api/v1/results/search", nil))
	require.Len(t, errs, 1)
	assert.Equal(t, []string{"query", "url"}, errs[0].Loc)
	assert.Equal(t, "missing", errs[0].Type)
}

func TestParseID(t *testing.T) {
	id, errs := parseID("42")
	assert.Empty(t, errs)
	assert.Equal(t, int64(42), id)

	_, errs = parseID("abc")
	require.Len(t, errs, 1)
	assert.Equal(t, "int_parsing", errs[0].Type)
}
