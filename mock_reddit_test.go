package redditstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const (
	defaultTokenBody = `{"access_token":"test-token","token_type":"bearer","expires_in":3600,"scope":"*"}`
	defaultMeBody    = `{"kind":"t2","data":{"id":"abc","name":"streambot","link_karma":10,"comment_karma":5}}`
	emptyListingBody = `{"kind":"Listing","data":{"children":[]}}`
)

type fakeResponse struct {
	status int
	body   string
}

// fakeReddit is a scripted HTTP stand-in for Reddit. Each path pops the next
// scripted response per request; exhausted or unscripted listing paths serve
// an empty listing, and the token and identity endpoints serve working
// defaults so tests only script what they care about.
type fakeReddit struct {
	server *httptest.Server

	mu       sync.Mutex
	scripts  map[string][]fakeResponse
	requests map[string]int
}

func newFakeReddit(t *testing.T) *fakeReddit {
	t.Helper()
	f := &fakeReddit{
		scripts:  make(map[string][]fakeResponse),
		requests: make(map[string]int),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeReddit) script(path string, responses ...fakeResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[path] = append(f.scripts[path], responses...)
}

func (f *fakeReddit) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[path]
}

func (f *fakeReddit) totalRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.requests {
		total += n
	}
	return total
}

func (f *fakeReddit) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	path := r.URL.Path
	f.requests[path]++

	var resp fakeResponse
	if queue := f.scripts[path]; len(queue) > 0 {
		resp = queue[0]
		f.scripts[path] = queue[1:]
	} else {
		switch {
		case strings.HasSuffix(path, "/api/v1/access_token"):
			resp = fakeResponse{status: http.StatusOK, body: defaultTokenBody}
		case strings.HasSuffix(path, "/api/v1/me"):
			resp = fakeResponse{status: http.StatusOK, body: defaultMeBody}
		default:
			resp = fakeResponse{status: http.StatusOK, body: emptyListingBody}
		}
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	w.Write([]byte(resp.body))
}

func testCredentials() *Credentials {
	return &Credentials{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		UserAgent:    "redditstream-test/1.0",
		Username:     "streambot",
		Password:     "hunter2",
	}
}

// testSession authenticates against the fake server with the rate limiter
// effectively disabled so tests are not throttled.
func testSession(t *testing.T, f *fakeReddit) *Session {
	t.Helper()
	session, err := Authenticate(context.Background(), testCredentials(), &Config{
		BaseURL:           f.server.URL,
		AuthURL:           f.server.URL,
		RequestsPerMinute: 600000,
		RateLimitBurst:    10000,
	})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	return session
}

func listingJSON(t *testing.T, children []map[string]any) string {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"kind": "Listing",
		"data": map[string]any{"children": children},
	})
	if err != nil {
		t.Fatalf("failed to marshal listing: %v", err)
	}
	return string(b)
}

// postListing builds a new-post listing body, newest first, from fullnames
// like "t3_p1".
func postListing(t *testing.T, subreddit string, names ...string) string {
	t.Helper()
	children := make([]map[string]any, 0, len(names))
	for _, name := range names {
		id := strings.TrimPrefix(name, "t3_")
		children = append(children, map[string]any{
			"kind": "t3",
			"data": map[string]any{
				"id":        id,
				"name":      name,
				"title":     "title " + id,
				"subreddit": subreddit,
				"permalink": "/r/" + subreddit + "/comments/" + id + "/slug/",
			},
		})
	}
	return listingJSON(t, children)
}

// commentListing builds a subreddit comment listing body, newest first, from
// fullnames like "t1_c1".
func commentListing(t *testing.T, subreddit string, names ...string) string {
	t.Helper()
	children := make([]map[string]any, 0, len(names))
	for _, name := range names {
		id := strings.TrimPrefix(name, "t1_")
		children = append(children, map[string]any{
			"kind": "t1",
			"data": map[string]any{
				"id":        id,
				"name":      name,
				"body":      "body " + id,
				"subreddit": subreddit,
				"permalink": "/r/" + subreddit + "/comments/post/slug/" + id + "/",
			},
		})
	}
	return listingJSON(t, children)
}
