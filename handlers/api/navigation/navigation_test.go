package navigation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"calorie-tracker/core"
	"calorie-tracker/durable"
	"calorie-tracker/repository"
	"calorie-tracker/stores/memory"

	"github.com/go-chi/chi/v5"
)

var testPages = Pages{Form: "food-item.html", List: "food-list.html"}

func setupServer(t *testing.T) (*httptest.Server, *repository.Repository) {
	t.Helper()
	repo := repository.New(durable.NewAdapter(memory.NewStore(), "CalorieTracker.s1"))
	repo.Load(context.Background())

	r := chi.NewRouter()
	r.Route("/navigation", func(r chi.Router) { Routes(r, repo, testPages) })

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, repo
}

func getJSON(t *testing.T, u string, out any) int {
	t.Helper()
	resp, err := http.Get(u)
	if err != nil {
		t.Fatalf("get %s: %v", u, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp.StatusCode
}

func TestEditRoundTrip(t *testing.T) {
	srv, repo := setupServer(t)
	item, _ := repo.Add(context.Background(), "Fish & Chips", "840")

	var dest DestinationResponse
	if code := getJSON(t, srv.URL+"/navigation/destination?id="+url.QueryEscape(item.ID), &dest); code != http.StatusOK {
		t.Fatalf("destination: %d", code)
	}
	u, err := url.Parse(dest.Destination)
	if err != nil {
		t.Fatalf("parse destination: %v", err)
	}
	if u.Path != "food-item.html" {
		t.Fatalf("unexpected page %q", u.Path)
	}

	var form FormResponse
	if code := getJSON(t, srv.URL+"/navigation/form?"+u.RawQuery, &form); code != http.StatusOK {
		t.Fatalf("form: %d", code)
	}
	if form.Intent.ID != item.ID || form.Intent.Name != "Fish & Chips" || form.Intent.Calories != "840" {
		t.Fatalf("form not pre-populated: %+v", form.Intent)
	}

	resp, err := http.Post(srv.URL+"/navigation/submit?"+u.RawQuery, "application/json",
		strings.NewReader(`{"name":"Fish and Chips","calories":"800"}`))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Redirect != "food-list.html?changed="+url.QueryEscape(item.ID)+"&op=updated" || out.Change.Op != core.OpUpdated {
		t.Errorf("unexpected submit response %+v", out)
	}
	if got, _ := repo.Get(item.ID); got.Name != "Fish and Chips" || got.Calories != 800 {
		t.Errorf("unexpected item %+v", got)
	}
}

func TestAddDestinationAndSubmit(t *testing.T) {
	srv, repo := setupServer(t)

	var dest DestinationResponse
	getJSON(t, srv.URL+"/navigation/destination", &dest)
	if dest.Destination != "food-item.html?type=add" {
		t.Fatalf("unexpected destination %q", dest.Destination)
	}

	form := url.Values{"name": {"Bagel"}, "calories": {"250"}}
	resp, err := http.Post(srv.URL+"/navigation/submit?type=add", "application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if repo.Len() != 1 {
		t.Errorf("expected 1 item, got %d", repo.Len())
	}
}

func TestSubmitDeletedItem(t *testing.T) {
	srv, repo := setupServer(t)
	item, _ := repo.Add(context.Background(), "Oats", "150")
	_, _ = repo.Remove(context.Background(), item.ID)

	q := url.Values{"type": {"edit"}, "id": {item.ID}, "name": {"Oats"}, "calories": {"150"}}
	resp, err := http.Post(srv.URL+"/navigation/submit?"+q.Encode(), "application/json",
		strings.NewReader(`{"name":"Oatmeal","calories":160}`))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if _, ok := body["redirect"]; ok {
		t.Error("failed submit still offered a redirect")
	}
	if repo.Len() != 0 {
		t.Error("stale edit resurrected the item")
	}
}

func TestInvalidIntent(t *testing.T) {
	srv, _ := setupServer(t)

	for _, q := range []string{"", "type=delete", "type=edit&name=x"} {
		if code := getJSON(t, srv.URL+"/navigation/form?"+q, nil); code != http.StatusBadRequest {
			t.Errorf("query %q: expected 400, got %d", q, code)
		}
	}
	if code := getJSON(t, srv.URL+"/navigation/destination?id=missing", nil); code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown id, got %d", code)
	}
}
