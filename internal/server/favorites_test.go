package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"toolhub/internal/favorites"
)

func TestFavoritesLifecycle(t *testing.T) {
	s := newTestServer(t, &stubGateway{configured: true})

	rec := doJSON(t, s, http.MethodPost, "/api/favorites/alice/collections",
		`{"name":"Reading list","description":"long reads"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create collection: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var col favorites.Collection
	if err := json.Unmarshal(rec.Body.Bytes(), &col); err != nil {
		t.Fatalf("decode collection: %v", err)
	}
	if col.ID == "" || col.Name != "Reading list" {
		t.Fatalf("unexpected collection %+v", col)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/favorites/alice/collections", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), col.ID) {
		t.Fatalf("list collections: %d %s", rec.Code, rec.Body.String())
	}

	itemsPath := fmt.Sprintf("/api/favorites/alice/collections/%s/items", col.ID)
	rec = doJSON(t, s, http.MethodPost, itemsPath,
		`{"externalId":"story-42","payload":{"title":"A story"}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add item: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var item favorites.FavoriteItem
	if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
		t.Fatalf("decode item: %v", err)
	}

	rec = doJSON(t, s, http.MethodGet, itemsPath, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"count":1`) {
		t.Fatalf("list items: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet,
		fmt.Sprintf("/api/favorites/alice/collections/%s/contains?externalId=story-42", col.ID), "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"contains":true`) {
		t.Fatalf("contains: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodPatch,
		"/api/favorites/alice/collections/"+col.ID, `{"name":"Archive"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"name":"Archive"`) {
		t.Fatalf("patch: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/favorites/alice/items/"+item.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("remove item: expected 204, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/favorites/alice/collections/"+col.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete collection: expected 204, got %d", rec.Code)
	}
}

func TestFavoritesValidation(t *testing.T) {
	s := newTestServer(t, &stubGateway{configured: true})

	rec := doJSON(t, s, http.MethodPost, "/api/favorites/alice/collections", `{"description":"no name"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing name, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/favorites/alice/collections/nope/items",
		`{"externalId":"x"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown collection, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodPatch, "/api/favorites/alice/collections/nope", `{"name":"x"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for patching unknown collection, got %d", rec.Code)
	}
}

func TestFavoritesNamespaceIsolation(t *testing.T) {
	s := newTestServer(t, &stubGateway{configured: true})

	rec := doJSON(t, s, http.MethodPost, "/api/favorites/alice/collections", `{"name":"mine"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/favorites/bob/collections", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "mine") {
		t.Fatalf("namespaces must be isolated: %s", rec.Body.String())
	}
}
