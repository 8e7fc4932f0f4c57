package schedule

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerateSchedule(t *testing.T) {
	var got generateScheduleRequest
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != GenerateEndpoint {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotToken = r.Header.Get(AuthHeader)
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(generateScheduleResponse{ScheduleID: 55, Weeks: 14})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret")
	if err := client.GenerateSchedule(context.Background(), 42, 2026); err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if got.LeagueID != 42 || got.Season != 2026 {
		t.Fatalf("request = %+v, want league 42 season 2026", got)
	}
	if gotToken != "secret" {
		t.Fatalf("auth header = %q, want %q", gotToken, "secret")
	}
}

func TestGenerateScheduleSurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "league not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	if err := client.GenerateSchedule(context.Background(), 42, 2026); err == nil {
		t.Fatal("expected an error for a 404 response")
	}
}
