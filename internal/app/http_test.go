package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"snippets/api/internal/search"
	"snippets/api/internal/snippet"
	"snippets/api/internal/store"
)

func newTestServer(t *testing.T, env *testEnv) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(NewHTTPServer(env.service, "*").Handler())
	t.Cleanup(server.Close)
	return server
}

func signIn(t *testing.T, env *testEnv, email string) string {
	t.Helper()
	session, err := env.service.CreateSession(context.Background(), email)
	if err != nil {
		t.Fatalf("CreateSession(%s): %v", email, err)
	}
	return session.Token
}

func doRequest(t *testing.T, method, url, token, body string) (*http.Response, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	payload := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	return resp, payload
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(&fakeStore{})
	server := newTestServer(t, env)

	resp, payload := doRequest(t, http.MethodGet, server.URL+"/api/health", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if payload["ok"] != true {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestReadyEndpointReportsDatabaseFailure(t *testing.T) {
	fs := &fakeStore{
		PingFn: func(ctx context.Context) error { return context.DeadlineExceeded },
	}
	env := newTestEnv(fs)
	server := newTestServer(t, env)

	resp, payload := doRequest(t, http.MethodGet, server.URL+"/api/ready", "", "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	if payload["status"] != "not_ready" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	env := newTestEnv(&fakeStore{})
	server := newTestServer(t, env)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/snippets"},
		{http.MethodPost, "/api/snippets"},
		{http.MethodGet, "/api/snippets/history"},
		{http.MethodGet, "/api/weekly"},
		{http.MethodGet, "/api/settings"},
		{http.MethodGet, "/api/search?q=x"},
		{http.MethodPost, "/api/admin/reminders"},
	}
	for _, p := range paths {
		resp, payload := doRequest(t, p.method, server.URL+p.path, "", "")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", p.method, p.path, resp.StatusCode)
		}
		if payload["code"] != "UNAUTHORIZED" {
			t.Errorf("%s %s: unexpected code %v", p.method, p.path, payload["code"])
		}
	}
}

func TestSessionEndpointUnauthenticated(t *testing.T) {
	env := newTestEnv(&fakeStore{})
	server := newTestServer(t, env)

	resp, payload := doRequest(t, http.MethodGet, server.URL+"/api/session", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if payload["authenticated"] != false {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestSnippetSubmitAndFetch(t *testing.T) {
	saved := map[string]snippet.Snippet{}
	fs := userStore(map[string]store.User{
		"alice@example.com": {Email: "alice@example.com", DisplayName: "Alice", IsEmailVerified: true},
	})
	fs.UpsertSnippetFn = func(ctx context.Context, item snippet.Snippet) error {
		saved[item.Week.Format("2006-01-02")] = item
		return nil
	}
	fs.SnippetsForUserFn = func(ctx context.Context, email string) ([]snippet.Snippet, error) {
		items := make([]snippet.Snippet, 0, len(saved))
		for _, item := range saved {
			items = append(items, item)
		}
		return items, nil
	}
	env := newTestEnv(fs)
	server := newTestServer(t, env)
	token := signIn(t, env, "alice@example.com")

	resp, payload := doRequest(t, http.MethodPost, server.URL+"/api/snippets", token,
		`{"week":"2026-08-24","text":"wrote the digest pipeline"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, payload)
	}
	if payload["week"] != "2026-08-24" || payload["text"] != "wrote the digest pipeline" {
		t.Fatalf("unexpected payload: %v", payload)
	}

	resp, payload = doRequest(t, http.MethodGet, server.URL+"/api/snippets", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	items := payload["snippets"].([]any)
	if len(items) == 0 {
		t.Fatal("expected at least one entry")
	}
	first := items[0].(map[string]any)
	if first["week"] != "2026-08-24" {
		t.Fatalf("expected newest week first, got %v", first["week"])
	}
}

func TestWeeklyEndpointRejectsBadWeek(t *testing.T) {
	fs := userStore(map[string]store.User{
		"alice@example.com": {Email: "alice@example.com", IsEmailVerified: true},
	})
	env := newTestEnv(fs)
	server := newTestServer(t, env)
	token := signIn(t, env, "alice@example.com")

	resp, payload := doRequest(t, http.MethodGet, server.URL+"/api/weekly?week=2026-08-26", token, "")
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	if payload["code"] != "INVALID_WEEK" {
		t.Fatalf("unexpected code: %v", payload["code"])
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	var saved snippet.Author
	fs := userStore(map[string]store.User{
		"alice@example.com": {Email: "alice@example.com", IsEmailVerified: true},
	})
	fs.UpsertAuthorSettingsFn = func(ctx context.Context, author snippet.Author) error {
		saved = author
		return nil
	}
	fs.GetAuthorFn = func(ctx context.Context, email string) (snippet.Author, error) {
		return snippet.NewAuthor(email), nil
	}
	env := newTestEnv(fs)
	server := newTestServer(t, env)
	token := signIn(t, env, "alice@example.com")

	resp, payload := doRequest(t, http.MethodPut, server.URL+"/api/settings", token,
		`{"category":"eng","wantsEmail":false,"wantsToView":"bob@example.com\ncarol@example.com"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, payload)
	}
	if saved.Category != "eng" || saved.WantsEmail {
		t.Fatalf("unexpected saved settings: %+v", saved)
	}
	if payload["wantsToView"] != "bob@example.com,carol@example.com" {
		t.Fatalf("list was not normalized: %v", payload["wantsToView"])
	}

	resp, payload = doRequest(t, http.MethodGet, server.URL+"/api/settings", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if payload["email"] != "alice@example.com" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestAdminEndpointsRejectNonAdmins(t *testing.T) {
	fs := userStore(map[string]store.User{
		"bob@example.com": {Email: "bob@example.com", IsEmailVerified: true},
	})
	env := newTestEnv(fs)
	server := newTestServer(t, env)
	token := signIn(t, env, "bob@example.com")

	for _, path := range []string{"/api/admin/reminders", "/api/admin/digest-notices"} {
		resp, payload := doRequest(t, http.MethodPost, server.URL+path, token, "")
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("%s: expected 403, got %d", path, resp.StatusCode)
		}
		if payload["code"] != "FORBIDDEN" {
			t.Errorf("%s: unexpected code %v", path, payload["code"])
		}
	}
}

func TestSearchEndpointValidatesPagination(t *testing.T) {
	fs := userStore(map[string]store.User{
		"alice@example.com": {Email: "alice@example.com", IsEmailVerified: true},
	})
	env := newTestEnv(fs)
	env.search.response = search.Response{
		Results: []search.Result{{Email: "alice@example.com", Week: "2026-08-17", Snippet: "hit"}},
		Total:   1,
		Query:   "digest",
	}
	server := newTestServer(t, env)
	token := signIn(t, env, "alice@example.com")

	resp, payload := doRequest(t, http.MethodGet, server.URL+"/api/search?q=digest&limit=nope", token, "")
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	if payload["code"] != "VALIDATION_ERROR" {
		t.Fatalf("unexpected code: %v", payload["code"])
	}

	resp, payload = doRequest(t, http.MethodGet, server.URL+"/api/search?q=digest", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	results := payload["results"].([]any)
	if len(results) != 1 {
		t.Fatalf("expected one result, got %v", payload)
	}
}

func TestWeeklyArchiveDownload(t *testing.T) {
	fs := userStore(map[string]store.User{
		"alice@example.com": {Email: "alice@example.com", IsEmailVerified: true},
	})
	env := newTestEnv(fs)
	fa := newFakeArchive()
	_ = fa.PutDigest(context.Background(), testViewAnchor, "snippets-2026-08-17.pdf", "application/pdf", []byte("%PDF-stub"))
	env.service.archive = fa
	server := newTestServer(t, env)
	token := signIn(t, env, "alice@example.com")

	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/weekly/archive?week=2026-08-17", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("archive request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %q", ct)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(raw) != "%PDF-stub" {
		t.Fatalf("unexpected payload: %q", raw)
	}
}

func TestWeeklyExportHTML(t *testing.T) {
	fs := userStore(map[string]store.User{
		"alice@example.com": {Email: "alice@example.com", IsEmailVerified: true},
	})
	fs.ListAuthorsFn = func(ctx context.Context) ([]snippet.Author, error) {
		return []snippet.Author{{Email: "alice@example.com", Category: "eng", WantsEmail: true, WantsToView: "all"}}, nil
	}
	fs.SnippetsForWeekFn = func(ctx context.Context, week time.Time) ([]snippet.Snippet, error) {
		return []snippet.Snippet{{Email: "alice@example.com", Week: week, Text: "shipped exports"}}, nil
	}
	env := newTestEnv(fs)
	server := newTestServer(t, env)
	token := signIn(t, env, "alice@example.com")

	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/weekly/export?week=2026-08-17&format=html", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("export request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "snippets-2026-08-17.html") {
		t.Fatalf("unexpected disposition %q", cd)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read export body: %v", err)
	}
	body := string(raw)
	if !strings.Contains(body, "shipped exports") || !strings.Contains(body, "eng") {
		t.Fatalf("rendered digest missing content: %s", body)
	}
}
