package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/celerix-dev/realtrack/internal/engine"
	"github.com/celerix-dev/realtrack/pkg/schema"
	"github.com/celerix-dev/realtrack/pkg/sdk"
	"github.com/gin-gonic/gin"
)

func setupTestRouter() (*gin.Engine, *Handler) {
	gin.SetMode(gin.TestMode)
	store := engine.NewMemStore(nil, nil)
	h := &Handler{Store: store}
	return NewRouter(h), h
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		buf = bytes.NewBuffer(b)
	} else {
		buf = &bytes.Buffer{}
	}
	req, _ := http.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateAndList(t *testing.T) {
	r, _ := setupTestRouter()

	w := doJSON(r, "POST", "/transactions", map[string]any{"name": "New Transaction"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}
	var created schema.Record
	json.Unmarshal(w.Body.Bytes(), &created)
	if created.IDKey() != "1" || created["name"] != "New Transaction" {
		t.Errorf("Unexpected created record: %v", created)
	}

	w = doJSON(r, "GET", "/transactions", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	var list []schema.Record
	json.Unmarshal(w.Body.Bytes(), &list)
	if len(list) != 1 || list[0]["name"] != "New Transaction" {
		t.Errorf("Expected one transaction, got %v", list)
	}
}

func TestListWithFilterAndGetByID(t *testing.T) {
	r, h := setupTestRouter()
	h.Store.Create("transactions", schema.Record{"name": "a", "priority_id": 1})
	h.Store.Create("transactions", schema.Record{"name": "b", "priority_id": 2})

	w := doJSON(r, "GET", "/transactions?priority_id=2", nil)
	var list []schema.Record
	json.Unmarshal(w.Body.Bytes(), &list)
	if len(list) != 1 || list[0]["name"] != "b" {
		t.Errorf("Expected [b], got %v", list)
	}

	w = doJSON(r, "GET", "/transactions?id=1", nil)
	var one schema.Record
	json.Unmarshal(w.Body.Bytes(), &one)
	if w.Code != http.StatusOK || one["name"] != "a" {
		t.Errorf("Expected record a, got %d %v", w.Code, one)
	}

	w = doJSON(r, "GET", "/transactions?id=99", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestUpdateAPI(t *testing.T) {
	r, h := setupTestRouter()
	h.Store.Create("buildings", schema.Record{"address_street": "1 Elm"})

	w := doJSON(r, "PUT", "/buildings/1", map[string]any{"notes": "corner"})
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	got, _ := h.Store.Get("buildings", "1")
	if got["notes"] != "corner" || got["address_street"] != "1 Elm" {
		t.Errorf("Update not applied: %v", got)
	}

	w = doJSON(r, "PUT", "/buildings/7", map[string]any{"notes": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestDeleteAPI(t *testing.T) {
	r, h := setupTestRouter()
	h.Store.Create("priorities", schema.Record{"order": 1})

	w := doJSON(r, "DELETE", "/priorities/1", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	if _, err := h.Store.Get("priorities", "1"); err == nil {
		t.Error("Record should have been deleted")
	}
}

func TestLinkRoutes(t *testing.T) {
	r, h := setupTestRouter()
	h.Store.Create("transactions", schema.Record{"name": "Deal"})
	h.Store.Create("buildings", schema.Record{"address_street": "1 Elm"})

	w := doJSON(r, "POST", "/"+schema.ResourceLinks, map[string]any{"transaction_id": 1, "building_id": 1})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}

	w = doJSON(r, "POST", "/"+schema.ResourceLinks, map[string]any{"transaction_id": 1})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422 for incomplete link, got %d", w.Code)
	}

	w = doJSON(r, "GET", "/"+schema.ResourceLinks+"?transaction_id=1", nil)
	var links []schema.Record
	json.Unmarshal(w.Body.Bytes(), &links)
	if len(links) != 1 {
		t.Errorf("Expected 1 link, got %v", links)
	}

	w = doJSON(r, "GET", "/transactions/1/buildings", nil)
	var buildings []schema.Record
	json.Unmarshal(w.Body.Bytes(), &buildings)
	if len(buildings) != 1 || buildings[0]["address_street"] != "1 Elm" {
		t.Errorf("Expected related building, got %v", buildings)
	}

	w = doJSON(r, "DELETE", "/links/1/1", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	w = doJSON(r, "DELETE", "/links/1/1", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for missing link, got %d", w.Code)
	}
}

func TestRelatedRoutes(t *testing.T) {
	r, h := setupTestRouter()
	h.Store.Create("transactions", schema.Record{"name": "Deal"})

	w := doJSON(r, "POST", "/transactions/1/notes", map[string]any{"text": "hi"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}

	w = doJSON(r, "GET", "/transactions/1/notes", nil)
	var notes []schema.Record
	json.Unmarshal(w.Body.Bytes(), &notes)
	if len(notes) != 1 || notes[0]["text"] != "hi" {
		t.Errorf("Expected one note, got %v", notes)
	}

	w = doJSON(r, "DELETE", "/transactions/1/notes/1", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	w = doJSON(r, "GET", "/transactions/9/notes", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for missing parent, got %d", w.Code)
	}
}

func TestInvalidJSONCreate(t *testing.T) {
	r, _ := setupTestRouter()

	req, _ := http.NewRequest("POST", "/transactions", bytes.NewBufferString("invalid"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	r, _ := setupTestRouter()

	req, _ := http.NewRequest("GET", "/transactions", nil)
	req.Header.Set(sdk.RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get(sdk.RequestIDHeader); got != "abc-123" {
		t.Errorf("Expected request id to be echoed, got %q", got)
	}

	w = doJSON(r, "GET", "/transactions", nil)
	if w.Header().Get(sdk.RequestIDHeader) == "" {
		t.Error("Expected a generated request id")
	}
}
