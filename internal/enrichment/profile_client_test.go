package enrichment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLookupParsesProfileFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("name"); got != "Acme Federal" {
			t.Errorf("name query = %q, want %q", got, "Acme Federal")
		}
		w.Write([]byte(`<html><body>
			<span data-field="website">https://acme.example</span>
			<span data-field="description">Federal IT provider</span>
			<span data-field="location">Reston, VA</span>
			<span data-field="employee_count">250</span>
			<span data-field="unknown">ignored</span>
		</body></html>`))
	}))
	defer server.Close()

	client := NewProfileClient(server.URL)
	defer client.Close()

	profile, err := client.Lookup(context.Background(), "Acme Federal")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}

	if profile.Website != "https://acme.example" {
		t.Errorf("Website = %q", profile.Website)
	}
	if profile.Description != "Federal IT provider" {
		t.Errorf("Description = %q", profile.Description)
	}
	if profile.Location != "Reston, VA" {
		t.Errorf("Location = %q", profile.Location)
	}
	if profile.EmployeeCount != "250" {
		t.Errorf("EmployeeCount = %q", profile.EmployeeCount)
	}
	if profile.IsEmpty() {
		t.Error("IsEmpty() = true for a populated profile")
	}
}

func TestLookupFallsBackToMetaDescription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head>
			<meta name="description" content="A company described only in meta">
		</head><body></body></html>`))
	}))
	defer server.Close()

	client := NewProfileClient(server.URL)
	defer client.Close()

	profile, err := client.Lookup(context.Background(), "Meta Co")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if profile.Description != "A company described only in meta" {
		t.Errorf("Description = %q, want the meta fallback", profile.Description)
	}
}

func TestLookupNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewProfileClient(server.URL)
	defer client.Close()

	if _, err := client.Lookup(context.Background(), "Missing Co"); err == nil {
		t.Error("Lookup() should fail on a non-200 response")
	}
}

func TestLookupEmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>nothing structured here</p></body></html>`))
	}))
	defer server.Close()

	client := NewProfileClient(server.URL)
	defer client.Close()

	profile, err := client.Lookup(context.Background(), "Sparse Co")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if !profile.IsEmpty() {
		t.Errorf("IsEmpty() = false for %+v", profile)
	}
}
