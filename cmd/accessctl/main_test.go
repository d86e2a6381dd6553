package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sheetviz/access-api/internal/client"
	"github.com/sheetviz/access-api/internal/core/domain"
)

func fakeServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var calls []string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/users/login", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "login")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": "tok",
			"user":  domain.User{ID: "sa", Role: domain.RoleSuperAdmin},
		})
	})
	mux.HandleFunc("POST /api/users/logout", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "logout")
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /api/users/all", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]domain.User{
			{ID: "sa", Name: "Root", Role: domain.RoleSuperAdmin, AdminRequestStatus: domain.RequestAccepted},
			{ID: "p1", Name: "Pat", Role: domain.RoleUser, AdminRequestStatus: domain.RequestPending},
		})
	})
	mux.HandleFunc("PUT /api/users/block/{id}", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "block "+r.PathValue("id"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": "block applied",
			"changed": true,
			"user":    domain.User{ID: r.PathValue("id"), Role: domain.RoleUser, AdminRequestStatus: domain.RequestRejected},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestRun_Dashboard(t *testing.T) {
	srv, calls := fakeServer(t)
	var out bytes.Buffer

	err := run(context.Background(), client.New(srv.URL), "root@example.com", "pw", []string{"dashboard"}, &out)
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if !strings.Contains(out.String(), "pending=1") || !strings.Contains(out.String(), "Pending admin requests") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "approve") {
		t.Fatalf("expected available actions in output:\n%s", out.String())
	}
	if got := strings.Join(*calls, ","); got != "login,logout" {
		t.Fatalf("unexpected call sequence %q", got)
	}
}

func TestRun_Transition(t *testing.T) {
	srv, calls := fakeServer(t)
	var out bytes.Buffer

	if err := run(context.Background(), client.New(srv.URL), "root@example.com", "pw", []string{"block", "p1"}, &out); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if !strings.Contains(out.String(), "block applied") {
		t.Fatalf("unexpected output: %s", out.String())
	}
	if got := strings.Join(*calls, ","); got != "login,block p1,logout" {
		t.Fatalf("unexpected call sequence %q", got)
	}
}

func TestRun_Usage(t *testing.T) {
	srv, _ := fakeServer(t)
	c := client.New(srv.URL)

	if err := run(context.Background(), c, "", "", []string{"users"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected missing credentials error")
	}
	if err := run(context.Background(), c, "root@example.com", "pw", []string{"approve"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected missing id error")
	}
	if err := run(context.Background(), c, "root@example.com", "pw", []string{"promote", "x"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected unknown command error")
	}
}
