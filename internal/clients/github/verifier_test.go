package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/yungbote/gitguide-backend/internal/modules/progression"
	"github.com/yungbote/gitguide-backend/internal/platform/logger"
)

func newTestVerifier(t *testing.T, mux *http.ServeMux) *Verifier {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	v, err := NewVerifier(logger.Nop(), Config{})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	base, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	v.gh.BaseURL = base
	v.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return v
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprint(w, body)
}

func TestVerifyProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/octocat", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"login":"octocat","name":"The Octocat","public_repos":8,"html_url":"https://github.com/octocat"}`)
	})
	mux.HandleFunc("/users/ghost-user", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"message":"Not Found"}`)
	})
	mux.HandleFunc("/users/broken", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadGateway, `{"message":"upstream"}`)
	})
	v := newTestVerifier(t, mux)
	ctx := context.Background()

	ev, err := v.VerifyProfile(ctx, "octocat")
	if err != nil {
		t.Fatalf("VerifyProfile: %v", err)
	}
	if ev.Login != "octocat" || ev.DisplayName != "The Octocat" || ev.PublicRepos != 8 {
		t.Fatalf("evidence: %+v", ev)
	}

	if _, err := v.VerifyProfile(ctx, "ghost-user"); !errors.Is(err, progression.ErrRemoteNotFound) {
		t.Fatalf("missing user: %v", err)
	}
	_, err = v.VerifyProfile(ctx, "broken")
	if err == nil || errors.Is(err, progression.ErrRemoteNotFound) {
		t.Fatalf("server error should be an outage, got %v", err)
	}
}

func TestVerifyRepository(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octocat/hello-gitguide", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"full_name":"octocat/hello-gitguide","default_branch":"main","private":false,"owner":{"login":"octocat"},"html_url":"https://github.com/octocat/hello-gitguide"}`)
	})
	mux.HandleFunc("/repos/octocat/missing-gitguide", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"message":"Not Found"}`)
	})
	v := newTestVerifier(t, mux)
	ctx := context.Background()

	ev, err := v.VerifyRepository(ctx, "octocat", "hello-gitguide")
	if err != nil {
		t.Fatalf("VerifyRepository: %v", err)
	}
	if ev.RepoFullName != "octocat/hello-gitguide" || ev.DefaultBranch != "main" || ev.Login != "octocat" {
		t.Fatalf("evidence: %+v", ev)
	}
	if _, err := v.VerifyRepository(ctx, "octocat", "missing-gitguide"); !errors.Is(err, progression.ErrRemoteNotFound) {
		t.Fatalf("missing repo: %v", err)
	}
}

func TestVerifyRecentCommit(t *testing.T) {
	since := time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC)
	var gotSince string
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octocat/hello-gitguide/commits", func(w http.ResponseWriter, r *http.Request) {
		gotSince = r.URL.Query().Get("since")
		writeJSON(w, http.StatusOK, `[{"sha":"abc123","html_url":"https://github.com/octocat/hello-gitguide/commit/abc123","commit":{"message":"first edit","author":{"name":"Mona"},"committer":{"date":"2026-03-01T09:30:00Z"}}}]`)
	})
	mux.HandleFunc("/repos/octocat/quiet-gitguide/commits", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[]`)
	})
	mux.HandleFunc("/repos/octocat/empty-gitguide/commits", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, `{"message":"Git Repository is empty."}`)
	})
	v := newTestVerifier(t, mux)
	ctx := context.Background()

	ev, err := v.VerifyRecentCommit(ctx, "octocat", "hello-gitguide", since)
	if err != nil {
		t.Fatalf("VerifyRecentCommit: %v", err)
	}
	if ev.CommitSHA != "abc123" || ev.CommitMessage != "first edit" || ev.CommitAuthor != "Mona" {
		t.Fatalf("evidence: %+v", ev)
	}
	if ev.CommittedAt == nil || !ev.CommittedAt.Equal(time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("committed_at: %v", ev.CommittedAt)
	}
	if gotSince != since.Format(time.RFC3339) {
		t.Fatalf("since query: %q", gotSince)
	}

	for _, repo := range []string{"quiet-gitguide", "empty-gitguide"} {
		if _, err := v.VerifyRecentCommit(ctx, "octocat", repo, since); !errors.Is(err, progression.ErrNoRecentCommit) {
			t.Fatalf("%s: %v", repo, err)
		}
	}
}
