package database

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeElastic answers the few endpoints the client uses.
type fakeElastic struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string]string
}

func (f *fakeElastic) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	key := r.Method + " " + r.URL.Path
	f.requests = append(f.requests, key)
	if f.bodies == nil {
		f.bodies = map[string]string{}
	}
	f.bodies[key] = string(body)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/teachers/_search" && r.URL.Query().Get("scroll") != "":
		io.WriteString(w, `{"_scroll_id":"s1","hits":{"total":{"value":3,"relation":"eq"},"hits":[
			{"_index":"teachers","_id":"T001","_source":{"id":"T001","classes":[{"code":"M1"}]}},
			{"_index":"teachers","_id":"T002","_source":{"id":"T002","classes":[]}}]}}`)
	case r.Method == http.MethodPost && r.URL.Path == "/_search/scroll" && strings.Contains(string(body), `"s1"`):
		io.WriteString(w, `{"_scroll_id":"s2","hits":{"hits":[
			{"_index":"teachers","_id":"T003","_source":{"id":"T003","age":41}}]}}`)
	case r.Method == http.MethodPost && r.URL.Path == "/_search/scroll":
		io.WriteString(w, `{"_scroll_id":"s2","hits":{"hits":[]}}`)
	case r.Method == http.MethodDelete && r.URL.Path == "/_search/scroll":
		io.WriteString(w, `{"succeeded":true,"num_freed":1}`)
	case r.Method == http.MethodPost && r.URL.Path == "/teachers/_search":
		io.WriteString(w, `{"hits":{"total":{"value":1,"relation":"eq"},"hits":[
			{"_index":"teachers","_id":"T001","_source":{"id":"T001","score":9}}]}}`)
	case r.URL.Path == "/_bulk":
		io.WriteString(w, `{"took":1,"errors":false,"items":[{"index":{"_index":"teachers","_id":"T001","status":201}}]}`)
	case r.Method == http.MethodDelete && r.URL.Path == "/missing":
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":{"type":"index_not_found_exception","reason":"no such index"},"status":404}`)
	default:
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"type":"unexpected","reason":"`+key+`"},"status":400}`)
	}
}

func newFakeClient(t *testing.T) (*ElasticSearchClient, *fakeElastic) {
	t.Helper()
	fake := &fakeElastic{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := NewElasticSearchClient(srv.URL, "", "")
	require.NoError(t, err)
	return client, fake
}

func TestElasticSearchClient_Search(t *testing.T) {
	client, fake := newFakeClient(t)

	docs, err := client.Search(context.Background(), "teachers", "subject:Math", []SortField{{Field: "lastName", Desc: true}}, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, json.Number("9"), docs[0]["score"])

	body := fake.bodies["POST /teachers/_search"]
	assert.Contains(t, body, `"query_string"`)
	assert.Contains(t, body, `"lastName"`)
}

func TestElasticSearchClient_ScrollAll(t *testing.T) {
	client, fake := newFakeClient(t)

	docs, err := client.ScrollAll(context.Background(), "teachers", "", nil)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "T001", docs[0]["id"])
	assert.Equal(t, json.Number("41"), docs[2]["age"])
	assert.Len(t, docs[0]["classes"], 1)

	assert.Contains(t, fake.bodies["POST /teachers/_search"], `"match_all"`)
	assert.Contains(t, fake.requests, "DELETE /_search/scroll")
}

func TestElasticSearchClient_BulkIndex(t *testing.T) {
	client, fake := newFakeClient(t)

	err := client.BulkIndex(context.Background(), "teachers", map[string]interface{}{
		"T001": Teacher{ID: "T001", FirstName: "Alice"},
	})
	require.NoError(t, err)
	assert.Contains(t, fake.bodies["POST /_bulk"], `"firstName":"Alice"`)

	require.NoError(t, client.BulkIndex(context.Background(), "teachers", nil))
}

func TestElasticSearchClient_DeleteMissingIndex(t *testing.T) {
	client, _ := newFakeClient(t)
	assert.NoError(t, client.DeleteIndex(context.Background(), "missing"))
}
