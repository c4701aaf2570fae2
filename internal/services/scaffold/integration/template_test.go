package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "github.com/skafu/skafu/internal/platform/errors"
)

func TestGetTemplateDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/templates/tmpl-1" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(TemplateInfo{ID: "tmpl-1", LatestVersion: "2.0", Compatible: true})
	}))
	defer server.Close()

	client, err := NewTemplateClient(server.URL, time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	info, err := client.GetTemplate(context.Background(), "tmpl-1")
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	if info.LatestVersion != "2.0" || !info.Compatible {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestGetTemplateNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, err := NewTemplateClient(server.URL, time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.GetTemplate(context.Background(), "tmpl-missing")
	if apperrors.CodeOf(err) != apperrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestGetTemplateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewTemplateClient(server.URL, time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.GetTemplate(context.Background(), "tmpl-1")
	if apperrors.CodeOf(err) != apperrors.CodeIntegrationFailure {
		t.Fatalf("expected INTEGRATION_FAILURE, got %v", err)
	}
}

func TestGetTemplateUnreachable(t *testing.T) {
	client, err := NewTemplateClient("http://127.0.0.1:1", 200*time.Millisecond)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.GetTemplate(context.Background(), "tmpl-1")
	if apperrors.CodeOf(err) != apperrors.CodeIntegrationFailure {
		t.Fatalf("expected INTEGRATION_FAILURE, got %v", err)
	}
}
