package http

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/strainix/timetrack/internal/handlers"
	"github.com/strainix/timetrack/internal/logging"
	"github.com/strainix/timetrack/internal/repos"
	"github.com/strainix/timetrack/internal/services"
)

func setupRouter(t *testing.T) (http.Handler, *services.SessionService) {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	stmts := []string{
		`CREATE TABLE user_codes (
			code TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			last_accessed INTEGER NOT NULL
		);`,
		`CREATE TABLE sessions (
			id TEXT PRIMARY KEY,
			user_code TEXT NOT NULL,
			device_id TEXT NOT NULL,
			start_time INTEGER NOT NULL,
			end_time INTEGER,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			deleted_at INTEGER
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatal(err)
		}
	}

	repo := repos.NewSessionRepo(db)
	svc := services.NewSessionService(repo)
	h := handlers.NewSessionHandler(svc)
	return NewRouter(logging.New("error"), h), svc
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Device-ID", "device-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var parsed map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &parsed)
	return rec, parsed
}

func TestAPIFlow(t *testing.T) {
	r, _ := setupRouter(t)

	rec, body := doJSON(t, r, http.MethodPost, "/api/user-code", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("user-code status=%d body=%s", rec.Code, rec.Body.String())
	}
	code, _ := body["code"].(string)
	if code == "" {
		t.Fatalf("expected code in response: %s", rec.Body.String())
	}

	rec, body = doJSON(t, r, http.MethodPost, "/api/sessions/"+code, `{"startTime":0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status=%d body=%s", rec.Code, rec.Body.String())
	}
	id, _ := body["sessionId"].(string)
	if id == "" {
		t.Fatalf("expected sessionId: %s", rec.Body.String())
	}

	rec, body = doJSON(t, r, http.MethodPut, "/api/sessions/"+code+"/"+id, `{"endTime":1000}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rec.Code, rec.Body.String())
	}
	if updated, _ := body["updated"].(bool); !updated {
		t.Fatalf("expected updated=true: %s", rec.Body.String())
	}

	rec, body = doJSON(t, r, http.MethodGet, "/api/sessions/"+code, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status=%d body=%s", rec.Code, rec.Body.String())
	}
	sessions, _ := body["sessions"].([]any)
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %s", rec.Body.String())
	}
	first, _ := sessions[0].(map[string]any)
	if got, _ := first["endTime"].(float64); got != 1000 {
		t.Fatalf("expected endTime=1000, got %v", first["endTime"])
	}

	rec, _ = doJSON(t, r, http.MethodDelete, "/api/sessions/"+code+"/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status=%d body=%s", rec.Code, rec.Body.String())
	}
	rec, _ = doJSON(t, r, http.MethodDelete, "/api/sessions/"+code+"/"+id, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on double delete, got %d", rec.Code)
	}
}

func TestUpdateMissingSessionReturns404(t *testing.T) {
	r, _ := setupRouter(t)
	rec, _ := doJSON(t, r, http.MethodPut, "/api/sessions/some-code/ghost", `{"endTime":5}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestSyncBatch(t *testing.T) {
	r, _ := setupRouter(t)
	code := "big-apple-9"

	ops := `[
		{"id":"op-1","type":"start_session","sessionId":"sess-1","data":{"startTime":100},"timestamp":100,"retries":0},
		{"id":"op-2","type":"end_session","sessionId":"sess-1","data":{"endTime":900},"timestamp":900,"retries":0},
		{"id":"op-3","type":"end_session","sessionId":"ghost","data":{"endTime":1},"timestamp":1,"retries":0}
	]`
	rec, body := doJSON(t, r, http.MethodPost, "/api/sync/"+code, ops)
	if rec.Code != http.StatusOK {
		t.Fatalf("sync status=%d body=%s", rec.Code, rec.Body.String())
	}
	results, _ := body["results"].([]any)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %s", rec.Body.String())
	}
	wantSuccess := []bool{true, true, false}
	for i, raw := range results {
		res, _ := raw.(map[string]any)
		if got, _ := res["success"].(bool); got != wantSuccess[i] {
			t.Fatalf("result %d: expected success=%v, got %s", i, wantSuccess[i], rec.Body.String())
		}
	}
	if _, ok := body["timestamp"].(float64); !ok {
		t.Fatalf("expected server timestamp in response: %s", rec.Body.String())
	}

	rec, body = doJSON(t, r, http.MethodGet, "/api/sessions/"+code, "")
	sessions, _ := body["sessions"].([]any)
	if rec.Code != http.StatusOK || len(sessions) != 1 {
		t.Fatalf("expected the batched session to exist: %s", rec.Body.String())
	}
}

func TestIncrementalSince(t *testing.T) {
	r, _ := setupRouter(t)
	code := "tiny-boat-8"

	rec, body := doJSON(t, r, http.MethodPost, "/api/sessions/"+code, `{"startTime":10}`)
	if rec.Code != http.StatusOK {
		t.Fatal(rec.Body.String())
	}
	watermark := int64(body["timestamp"].(float64))

	rec, body = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/sessions/%s?since=%d", code, watermark), "")
	if rec.Code != http.StatusOK {
		t.Fatal(rec.Body.String())
	}
	if sessions, _ := body["sessions"].([]any); len(sessions) != 0 {
		t.Fatalf("expected no sessions past the watermark, got %s", rec.Body.String())
	}
}

func TestCORSHeaders(t *testing.T) {
	r, _ := setupRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/user-code", nil)
	req.Header.Set("Origin", "https://client.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard CORS origin, got %q (status %d)", got, rec.Code)
	}
}

func TestGenerateUserCodeExhaustionReturns503(t *testing.T) {
	r, svc := setupRouter(t)
	svc.SetCodeGenerator(func() string { return "red-cat-1" })

	rec, body := doJSON(t, r, http.MethodPost, "/api/user-code", "")
	if rec.Code != http.StatusOK {
		t.Fatal(rec.Body.String())
	}
	if body["code"] != "red-cat-1" {
		t.Fatalf("first code = %v, want red-cat-1", body["code"])
	}

	// The generator now only produces collisions.
	rec, body = doJSON(t, r, http.MethodPost, "/api/user-code", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when the code space is exhausted, got %d: %s", rec.Code, rec.Body.String())
	}
	if body["error"] == "" {
		t.Fatal("expected an error body")
	}
}
