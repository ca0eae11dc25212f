package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kitchenhire/booking-engine/internal/task"
)

func TestTaskCRUDSendsBearerAndBodies(t *testing.T) {
	var gotAuth, gotMethod, gotPath string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		if r.Method == http.MethodGet {
			_ = json.NewEncoder(w).Encode([]task.Record{{ID: "1", Title: "t"}})
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{BaseURL: srv.URL, Token: "secret", Timeout: 2 * time.Second})
	ctx := context.Background()

	items, err := c.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	if len(items) != 1 || items[0].ID != "1" {
		t.Fatalf("unexpected items: %+v", items)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("missing bearer header, got %q", gotAuth)
	}

	if err := c.CreateTask(ctx, task.Record{ID: "2", Title: "new"}); err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/tasks" {
		t.Fatalf("create went to %s %s", gotMethod, gotPath)
	}

	if err := c.UpdateTask(ctx, "2", Patch{"completed": true}); err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/tasks/2" {
		t.Fatalf("update went to %s %s", gotMethod, gotPath)
	}
	var patch map[string]any
	if err := json.Unmarshal(gotBody, &patch); err != nil {
		t.Fatalf("patch body not json: %v", err)
	}
	if patch["completed"] != true {
		t.Fatalf("unexpected patch body: %v", patch)
	}

	if err := c.DeleteTask(ctx, "2"); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/tasks/2" {
		t.Fatalf("delete went to %s %s", gotMethod, gotPath)
	}
}

func TestRejectedCarriesBodyMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"title required"}`))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{BaseURL: srv.URL})
	err := c.CreateTask(context.Background(), task.Record{})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected *RejectedError, got %T", err)
	}
	if rejected.Status != http.StatusUnprocessableEntity || rejected.Message != "title required" {
		t.Fatalf("unexpected rejection: %+v", rejected)
	}
}

func TestUnreachableClassifiedAsUnavailable(t *testing.T) {
	c := NewClient(ClientOptions{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond})
	_, err := c.ListBookings(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestProjectsFullReplace(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`{"projects":["site","van"]}`))
			return
		}
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{BaseURL: srv.URL})
	projects, err := c.GetProjects(context.Background())
	if err != nil {
		t.Fatalf("GetProjects() error = %v", err)
	}
	if len(projects) != 2 || projects[0] != "site" {
		t.Fatalf("unexpected projects: %v", projects)
	}

	if err := c.PutProjects(context.Background(), nil); err != nil {
		t.Fatalf("PutProjects() error = %v", err)
	}
	var doc map[string][]string
	if err := json.Unmarshal([]byte(gotBody), &doc); err != nil {
		t.Fatalf("body not json: %v (%q)", err, gotBody)
	}
	if doc["projects"] == nil || len(doc["projects"]) != 0 {
		t.Fatalf("nil projects should serialize as empty list, got %q", gotBody)
	}
}
