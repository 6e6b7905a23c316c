package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// FakeProvider is an in-process stand-in for the metadata API.
//
// Records are registered per lookup target ("comics?upc=<code>" or
// "<endpoint>/<id>") and served inside the provider's response envelope.
// Unregistered targets answer 404. Requests without apikey, ts and hash
// answer 409 the way the real gateway does.
//
// Thread-safety: FakeProvider is safe for concurrent use via internal mutex.
type FakeProvider struct {
	server *httptest.Server

	mu       sync.Mutex
	records  map[string][]json.RawMessage
	statuses map[string]int
	hits     map[string]int
}

// NewFakeProvider starts a fake API server that is closed with the test.
func NewFakeProvider(t testing.TB) *FakeProvider {
	t.Helper()
	f := &FakeProvider{
		records:  make(map[string][]json.RawMessage),
		statuses: make(map[string]int),
		hits:     make(map[string]int),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

// URL is the base URL to hand to provider.NewClient.
func (f *FakeProvider) URL() string { return f.server.URL }

// SetCode registers the records returned for a retail code lookup. Zero
// records produce an empty result, several produce an ambiguous one.
func (f *FakeProvider) SetCode(code string, records ...json.RawMessage) {
	f.set(CodeTarget(code), records)
}

// SetRecord registers the records returned for an id lookup.
func (f *FakeProvider) SetRecord(endpoint string, id int64, records ...json.RawMessage) {
	f.set(IDTarget(endpoint, id), records)
}

// SetStatus makes a target answer with a bare HTTP status.
func (f *FakeProvider) SetStatus(target string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[target] = status
}

// Hits returns how many times a target was requested.
func (f *FakeProvider) Hits(target string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[target]
}

// CodeTarget names the lookup target of a retail code.
func CodeTarget(code string) string { return "comics?upc=" + code }

// IDTarget names the lookup target of an id.
func IDTarget(endpoint string, id int64) string { return fmt.Sprintf("%s/%d", endpoint, id) }

func (f *FakeProvider) set(target string, records []json.RawMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if records == nil {
		records = []json.RawMessage{}
	}
	f.records[target] = records
}

func (f *FakeProvider) serve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	w.Header().Set("Content-Type", "application/json")

	if q.Get("apikey") == "" || q.Get("ts") == "" || q.Get("hash") == "" {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"code":"MissingParameter","message":"You must provide a hash."}`)
		return
	}

	target := strings.TrimPrefix(r.URL.Path, "/")
	if upc := q.Get("upc"); upc != "" {
		target = CodeTarget(upc)
	}

	f.mu.Lock()
	f.hits[target]++
	status, hasStatus := f.statuses[target]
	records, found := f.records[target]
	f.mu.Unlock()

	if hasStatus {
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"code":%d,"status":%q}`, status, http.StatusText(status))
		return
	}
	if !found {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"code":404,"status":"We couldn't find that comic_issue"}`)
		return
	}

	body := map[string]any{
		"code":   200,
		"status": "Ok",
		"data": map[string]any{
			"offset":  0,
			"limit":   20,
			"total":   len(records),
			"count":   len(records),
			"results": records,
		},
	}
	_ = json.NewEncoder(w).Encode(body)
}
