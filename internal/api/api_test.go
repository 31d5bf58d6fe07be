package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/tagvault/internal/testutil"
)

// testEnv sets up a temp vault, SQLite DB, service, and router for testing.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (http.Handler, string) {
	t.Helper()
	return testEnvWithSSE(t, authToken != "", authToken, nil)
}

// testEnvWithSSE is testEnv with an optional SSE handler mounted at /events.
func testEnvWithSSE(t *testing.T, authEnabled bool, token string, sseHandler http.Handler) (http.Handler, string) {
	t.Helper()
	svc, vaultDir, _ := testutil.TestService(t, nil)
	return NewRouter(svc, authEnabled, token, sseHandler), vaultDir
}

func writeNote(t *testing.T, vaultDir, name, content string) {
	t.Helper()
	p := filepath.Join(vaultDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func postTags(t *testing.T, router http.Handler, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/tags", bytes.NewReader(raw))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(router http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestManageTags_AddThenQuery(t *testing.T) {
	router, vault := testEnv(t, "")
	writeNote(t, vault, "a.md", "Notes here.")

	w := postTags(t, router, map[string]any{
		"files":     []string{"a.md", "missing.md"},
		"operation": "add",
		"tags":      []string{"ProjectActive"},
		"options":   map[string]any{"location": "content", "position": "start"},
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var res struct {
		OperationID string `json:"operationId"`
		Report      struct {
			Success []string `json:"success"`
			Errors  []struct {
				File string `json:"file"`
			} `json:"errors"`
		} `json:"report"`
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.OperationID == "" {
		t.Error("missing operation id")
	}
	if len(res.Report.Success) != 1 || res.Report.Success[0] != "a.md" {
		t.Errorf("success = %v", res.Report.Success)
	}
	if len(res.Report.Errors) != 1 || res.Report.Errors[0].File != "missing.md" {
		t.Errorf("errors = %v", res.Report.Errors)
	}

	got, _ := os.ReadFile(filepath.Join(vault, "a.md"))
	if !strings.HasPrefix(string(got), "#project-active\n\nNotes here.") {
		t.Errorf("file = %q", got)
	}

	// The written file is re-indexed right away.
	w = get(router, "/tags")
	var tl TagListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &tl)
	if len(tl.Tags) != 1 || tl.Tags[0].Tag != "project-active" || tl.Tags[0].Count != 1 {
		t.Errorf("tags = %+v", tl.Tags)
	}
}

func TestManageTags_InvalidRequest(t *testing.T) {
	router, vault := testEnv(t, "")
	writeNote(t, vault, "a.md", "x")

	cases := []any{
		map[string]any{"files": []string{"a.md"}, "operation": "add", "tags": []string{"bad tag!"}},
		map[string]any{"files": []string{}, "operation": "add", "tags": []string{"a"}},
		map[string]any{"files": []string{"a.md"}, "operation": "add", "tags": []string{"a"}, "extra": true},
	}
	for i, body := range cases {
		w := postTags(t, router, body, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("case %d: status = %d, want 400", i, w.Code)
		}
	}
	got, _ := os.ReadFile(filepath.Join(vault, "a.md"))
	if string(got) != "x" {
		t.Errorf("file modified by rejected request: %q", got)
	}

	req := httptest.NewRequest(http.MethodPost, "/tags", strings.NewReader("{"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON = %d, want 400", w.Code)
	}
}

func TestManageTags_RemovePatternReport(t *testing.T) {
	router, vault := testEnv(t, "")
	writeNote(t, vault, "p.md", "Intro\n#archive/2023 #archive/2024/q1 #keep\n")

	w := postTags(t, router, map[string]any{
		"files":     []string{"p.md"},
		"operation": "remove",
		"tags":      []string{"archive"},
		"options":   map[string]any{"patterns": []string{"archive/*"}},
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"p.md":{"removedTags":[{"tag":"archive/2023","location":"content","line":2`) {
		t.Errorf("details missing: %s", w.Body.String())
	}
	got, _ := os.ReadFile(filepath.Join(vault, "p.md"))
	if string(got) != "Intro\n#keep\n" {
		t.Errorf("file = %q", got)
	}
}

func tagNames(t *testing.T, w *httptest.ResponseRecorder) []string {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var tl TagListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &tl); err != nil {
		t.Fatalf("decode: %v", err)
	}
	names := make([]string, len(tl.Tags))
	for i, tc := range tl.Tags {
		names[i] = tc.Tag
	}
	return names
}

func TestTagQueries(t *testing.T) {
	router, vault := testEnv(t, "")
	writeNote(t, vault, "a.md", "#project #project/alpha\n")
	writeNote(t, vault, "b.md", "#project/beta\n")
	// Writing the files through a batch indexes them.
	w := postTags(t, router, map[string]any{
		"files": []string{"a.md", "b.md"}, "operation": "add", "tags": []string{"seen"},
		"options": map[string]any{"location": "content"},
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	got := tagNames(t, get(router, "/tags?pattern=project/*"))
	if strings.Join(got, ",") != "project/alpha,project/beta" {
		t.Errorf("pattern tags = %v", got)
	}

	got = tagNames(t, get(router, "/tags/related?tag=project"))
	if strings.Join(got, ",") != "project/alpha,project/beta" {
		t.Errorf("related = %v", got)
	}

	if w := get(router, "/tags/related"); w.Code != http.StatusBadRequest {
		t.Errorf("related without tag = %d, want 400", w.Code)
	}
	if w := get(router, "/tags?pattern=bad!"); w.Code != http.StatusBadRequest {
		t.Errorf("bad pattern = %d, want 400", w.Code)
	}
}

func TestNotesEndpoints(t *testing.T) {
	router, vault := testEnv(t, "")
	writeNote(t, vault, "dir/n.md", "---\ntitle: N\ntags: [x]\n---\nbody #y\n")
	postTags(t, router, map[string]any{"files": []string{"dir/n.md"}, "operation": "add", "tags": []string{"z"}, "options": map[string]any{"location": "frontmatter"}}, "")

	w := get(router, "/notes/dir/n.md")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var note NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if note.Title != "N" || len(note.Tags) != 3 {
		t.Errorf("note = %+v", note)
	}

	w = get(router, "/notes?tag=z")
	var list NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 1 || list.Notes[0].Path != "dir/n.md" {
		t.Errorf("list = %+v", list)
	}

	w = get(router, "/tags/notes?tag=z")
	var tn TagNotesResponse
	_ = json.Unmarshal(w.Body.Bytes(), &tn)
	if len(tn.Notes) != 1 {
		t.Errorf("notes by tag = %+v", tn)
	}
}

func TestGetNote_NotFound(t *testing.T) {
	router, _ := testEnv(t, "")
	if w := get(router, "/notes/nope.md"); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetNote_Traversal(t *testing.T) {
	router, _ := testEnv(t, "")
	if w := get(router, "/notes/..%2F..%2Fetc%2Fpasswd.md"); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router, vault := testEnv(t, "secret123")
	writeNote(t, vault, "auth.md", "text")

	w := postTags(t, router, map[string]any{"files": []string{"auth.md"}, "operation": "add", "tags": []string{"a"}}, "secret123")
	if w.Code != http.StatusOK {
		t.Errorf("authed manage = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router, _ := testEnv(t, "secret123")
	if w := get(router, "/tags"); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	router, _ := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/tags", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	router, _ := testEnv(t, "")
	if w := get(router, "/notes"); w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// blockingSSE writes headers and blocks until the request context ends.
var blockingSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	router, _ := testEnvWithSSE(t, true, "secret", blockingSSE)

	// No token → 401.
	if w := get(router, "/events"); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router, _ := testEnvWithSSE(t, true, "tok", blockingSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}
