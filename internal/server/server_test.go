package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"

	"taskboard/internal/config"
	"taskboard/internal/db"
	"taskboard/internal/engine"
	"taskboard/internal/migrate"
)

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default())
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v1",
		Auth:     AuthConfig{AllowLegacyActorHeader: true},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(testSrv.close)
	return testSrv
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if headers == nil {
		req.Header.Set("X-Actor-Id", "tester")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func createBoard(t *testing.T, srv *testServer, name string) BoardResponse {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/boards", map[string]any{"name": name}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create board: %d %s", res.StatusCode, string(data))
	}
	var b BoardResponse
	if err := json.Unmarshal(data, &b); err != nil {
		t.Fatalf("unmarshal board: %v", err)
	}
	return b
}

func TestHealthRequiresNoAuth(t *testing.T) {
	srv := newTestServer(t)
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/health", nil)
	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d", res.StatusCode)
	}
}

func TestUnauthenticatedRequestRejected(t *testing.T) {
	srv := newTestServer(t)
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/boards", nil)
	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.StatusCode)
	}
}

func TestBoardTaskLifecycle(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()
	board := createBoard(t, srv, "Sport")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/boards/"+board.ID+"/tasks", map[string]any{
		"summary": "Morning run",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task: %d %s", res.StatusCode, string(data))
	}
	var task TaskResponse
	if err := json.Unmarshal(data, &task); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}
	if task.Key != "SPO-001" {
		t.Fatalf("key = %q, want SPO-001", task.Key)
	}
	if task.Status != "TODO" {
		t.Fatalf("status = %q", task.Status)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks/"+task.ID+"/move", map[string]any{
		"status": "DONE",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("move: %d %s", res.StatusCode, string(data))
	}
	var moved TaskResponse
	_ = json.Unmarshal(data, &moved)
	if moved.Status != "DONE" {
		t.Fatalf("moved status = %q", moved.Status)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/boards/"+board.ID+"/columns", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("columns: %d %s", res.StatusCode, string(data))
	}
	var cols ColumnsResponse
	if err := json.Unmarshal(data, &cols); err != nil {
		t.Fatalf("unmarshal columns: %v", err)
	}
	if len(cols["DONE"]) != 1 || len(cols["TODO"]) != 0 {
		t.Fatalf("columns: %+v", cols)
	}

	summary := "Evening run"
	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v1/tasks/"+task.ID, map[string]any{
		"summary": summary,
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("patch: %d %s", res.StatusCode, string(data))
	}
	var patched TaskResponse
	_ = json.Unmarshal(data, &patched)
	if patched.Summary != summary || patched.Status != "DONE" {
		t.Fatalf("patched: %+v", patched)
	}

	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/v1/tasks/"+task.ID, nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("delete: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/tasks/"+task.ID, nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d %s", res.StatusCode, string(data))
	}
}

func TestTaskByKeyResolvesSubtaskParent(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()
	board := createBoard(t, srv, "Sport")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/boards/"+board.ID+"/tasks", map[string]any{
		"key":     "PS-2",
		"summary": "Plan session",
		"subtasks": []map[string]any{
			{"summary": "Warm up"},
		},
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/tasks/key/PS-3", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("by key: %d %s", res.StatusCode, string(data))
	}
	var byKey TaskByKeyResponse
	if err := json.Unmarshal(data, &byKey); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if byKey.Task.Summary != "Warm up" {
		t.Fatalf("task: %+v", byKey.Task)
	}
	if byKey.ParentKey == nil || *byKey.ParentKey != "PS-2" {
		t.Fatalf("parent key: %+v", byKey.ParentKey)
	}
}

func TestReorderPersistsColumnOrder(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()
	board := createBoard(t, srv, "Sport")

	var ids []string
	for _, s := range []string{"a", "b", "c"} {
		res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/boards/"+board.ID+"/tasks", map[string]any{
			"summary": s,
		}, nil)
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("create %s: %d %s", s, res.StatusCode, string(data))
		}
		var task TaskResponse
		_ = json.Unmarshal(data, &task)
		ids = append(ids, task.ID)
	}
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/boards/"+board.ID+"/tasks/reorder", map[string]any{
		"status":      "TODO",
		"ordered_ids": []string{ids[2], ids[0], ids[1]},
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("reorder: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/boards/"+board.ID+"/columns", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("columns: %d %s", res.StatusCode, string(data))
	}
	var cols ColumnsResponse
	_ = json.Unmarshal(data, &cols)
	todo := cols["TODO"]
	if len(todo) != 3 || todo[0].ID != ids[2] || todo[1].ID != ids[0] || todo[2].ID != ids[1] {
		t.Fatalf("order: %+v", todo)
	}
}

func TestScheduleViewGroupsByBoard(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()
	sport := createBoard(t, srv, "Sport")
	work := createBoard(t, srv, "Work")
	day := "2024-06-01"

	for _, b := range []BoardResponse{sport, work} {
		res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/boards/"+b.ID+"/tasks", map[string]any{
			"summary":       "on " + b.Name,
			"schedule_date": day,
		}, nil)
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("create: %d %s", res.StatusCode, string(data))
		}
	}
	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/schedule/"+day, nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("schedule: %d %s", res.StatusCode, string(data))
	}
	var groups []GroupResponse
	if err := json.Unmarshal(data, &groups); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	if groups[0].Label != "Sport" || groups[1].Label != "Work" {
		t.Fatalf("labels: %s, %s", groups[0].Label, groups[1].Label)
	}
}

func TestAPIKeyAuthentication(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/apikeys", map[string]any{
		"name": "ci",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create key: %d %s", res.StatusCode, string(data))
	}
	var key APIKeyResponse
	if err := json.Unmarshal(data, &key); err != nil {
		t.Fatalf("unmarshal key: %v", err)
	}
	if key.Key == "" {
		t.Fatal("plaintext key missing from create response")
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/boards", nil, map[string]string{"X-Api-Key": key.Key})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("api key auth: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/boards", nil, map[string]string{"X-Api-Key": "bogus"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bogus key, got %d %s", res.StatusCode, string(data))
	}
}

func TestNotFoundUsesErrorEnvelope(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/boards/missing", nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d", res.StatusCode)
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.Error.Code != "not_found" {
		t.Fatalf("code = %q: %s", envelope.Error.Code, string(data))
	}
}
