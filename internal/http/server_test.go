package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"gptracker/internal/core"
	"gptracker/internal/remote/memory"
	"gptracker/internal/services"
	"gptracker/internal/storage"
	gpsync "gptracker/internal/sync"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	store := memory.New()
	uploader := gpsync.NewUploader(store, 75, gpsync.DefaultPolicy(), nil)
	pipeline := gpsync.NewPipeline(store, repo, uploader, gpsync.DefaultPolicy(), 500, nil)
	svc := services.NewDatasetService(repo, nil, pipeline, nil)

	srv := NewServer(":0", svc, nil, nil)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return srv, store
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func seedServer(t *testing.T, srv *Server) {
	t.Helper()
	chars := []core.Character{
		{Name: "Alice", AccountType: core.AccountMain, CombatLevel: 110, TotalLevel: 1800, Coins: 1_000_000},
	}
	for _, c := range chars {
		if rec := doJSON(t, srv, http.MethodPut, "/api/characters", c); rec.Code != http.StatusNoContent {
			t.Fatalf("PUT /api/characters = %d, body %s", rec.Code, rec.Body.String())
		}
	}
	methods := []core.MoneyMethod{
		{Name: "Vorkath", GPHour: 3_000_000, Intensity: 4, AssignedTo: "Alice", Active: true},
		{Name: "Herb runs", GPHour: 400_000, Intensity: 2, AssignedTo: "Alice"},
	}
	for _, m := range methods {
		if rec := doJSON(t, srv, http.MethodPut, "/api/methods", m); rec.Code != http.StatusNoContent {
			t.Fatalf("PUT /api/methods = %d, body %s", rec.Code, rec.Body.String())
		}
	}
	bank := core.BankItem{Character: "Alice", Name: "Rune ore", Quantity: 100, EstimatedPrice: 11_000}
	if rec := doJSON(t, srv, http.MethodPut, "/api/bank", bank); rec.Code != http.StatusNoContent {
		t.Fatalf("PUT /api/bank = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, srv, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestOverviewReflectsMutations(t *testing.T) {
	srv, _ := newTestServer(t)
	seedServer(t, srv)

	rec := doJSON(t, srv, http.MethodGet, "/api/overview", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/overview = %d", rec.Code)
	}
	var o core.Overview
	if err := json.Unmarshal(rec.Body.Bytes(), &o); err != nil {
		t.Fatalf("decode overview: %v", err)
	}
	if o.BankValue != 1_100_000 {
		t.Errorf("BankValue = %d, want 1100000", o.BankValue)
	}
	if o.GPHour != 3_000_000 {
		t.Errorf("GPHour = %d, want 3000000", o.GPHour)
	}

	// The cache must not serve stale numbers after a write.
	item := core.BankItem{Character: "Alice", Name: "Dragon bones", Quantity: 10, EstimatedPrice: 2_500}
	if rec := doJSON(t, srv, http.MethodPut, "/api/bank", item); rec.Code != http.StatusNoContent {
		t.Fatalf("PUT /api/bank = %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/overview", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &o); err != nil {
		t.Fatalf("decode overview: %v", err)
	}
	if o.BankValue != 1_125_000 {
		t.Errorf("BankValue after insert = %d, want 1125000", o.BankValue)
	}
}

func TestCharacterCRUD(t *testing.T) {
	srv, _ := newTestServer(t)
	seedServer(t, srv)

	rec := doJSON(t, srv, http.MethodGet, "/api/characters", nil)
	var chars []core.Character
	if err := json.Unmarshal(rec.Body.Bytes(), &chars); err != nil {
		t.Fatalf("decode characters: %v", err)
	}
	if len(chars) != 1 || chars[0].Name != "Alice" {
		t.Fatalf("characters = %+v, want [Alice]", chars)
	}

	if rec := doJSON(t, srv, http.MethodDelete, "/api/characters/Alice", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE /api/characters/Alice = %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/characters", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &chars); err != nil {
		t.Fatalf("decode characters: %v", err)
	}
	if len(chars) != 0 {
		t.Errorf("characters after delete = %+v, want none", chars)
	}

	// Methods assigned to the deleted character are released and parked.
	rec = doJSON(t, srv, http.MethodGet, "/api/methods", nil)
	var methods []core.MoneyMethod
	if err := json.Unmarshal(rec.Body.Bytes(), &methods); err != nil {
		t.Fatalf("decode methods: %v", err)
	}
	for _, m := range methods {
		if m.AssignedTo != "" || m.Active {
			t.Errorf("method %q still assigned/active after character delete: %+v", m.Name, m)
		}
	}
}

func TestActivateMethodEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	seedServer(t, srv)

	if rec := doJSON(t, srv, http.MethodPost, "/api/methods/Herb%20runs/activate", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("activate = %d, body %s", rec.Code, rec.Body.String())
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/methods", nil)
	var methods []core.MoneyMethod
	if err := json.Unmarshal(rec.Body.Bytes(), &methods); err != nil {
		t.Fatalf("decode methods: %v", err)
	}
	for _, m := range methods {
		want := m.Name == "Herb runs"
		if m.Active != want {
			t.Errorf("method %q Active = %v, want %v", m.Name, m.Active, want)
		}
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/methods/nope/activate", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("activate unknown method = %d, want 404", rec.Code)
	}
}

func TestSyncSaveAndLoad(t *testing.T) {
	srv, store := newTestServer(t)
	seedServer(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/api/sync/save", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/sync/save = %d, body %s", rec.Code, rec.Body.String())
	}
	var status services.SyncStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode sync status: %v", err)
	}
	if status.Queued {
		t.Error("inline save reported as queued")
	}

	remoteData, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("store.Load() error = %v", err)
	}
	if len(remoteData.Characters) != 1 {
		t.Fatalf("remote characters = %d, want 1", len(remoteData.Characters))
	}

	// Wipe local, then load back from the remote.
	if rec := doJSON(t, srv, http.MethodDelete, "/api/characters/Alice", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodPost, "/api/sync/load", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/sync/load = %d, body %s", rec.Code, rec.Body.String())
	}
	var d core.Dataset
	if err := json.Unmarshal(rec.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode dataset: %v", err)
	}
	if len(d.Characters) != 1 || d.Characters[0].Name != "Alice" {
		t.Errorf("loaded characters = %+v, want [Alice]", d.Characters)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)
	seedServer(t, srv)

	rec := doJSON(t, srv, http.MethodGet, "/api/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/export = %d", rec.Code)
	}
	exported := rec.Body.String()
	if !strings.Contains(exported, "Alice") {
		t.Fatalf("export missing seeded character: %s", exported)
	}

	fresh, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(exported))
	rec2 := httptest.NewRecorder()
	fresh.Server.Handler.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusOK {
		t.Fatalf("POST /api/import = %d, body %s", rec2.Code, rec2.Body.String())
	}

	rec = doJSON(t, fresh, http.MethodGet, "/api/characters", nil)
	var chars []core.Character
	if err := json.Unmarshal(rec.Body.Bytes(), &chars); err != nil {
		t.Fatalf("decode characters: %v", err)
	}
	if len(chars) != 1 || chars[0].Name != "Alice" {
		t.Errorf("imported characters = %+v, want [Alice]", chars)
	}
}

func TestImportRejectsGarbage(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader("not a backup"))
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError && rec.Code != http.StatusBadRequest {
		t.Fatalf("POST /api/import garbage = %d, want 4xx/5xx", rec.Code)
	}
	if rec.Code == http.StatusOK {
		t.Fatal("garbage import accepted")
	}
}

func TestBankImportEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	seedServer(t, srv)

	csv := "Name,Quantity,Value\nDragon bones,50,2500\nNature rune,200,95\n"
	req := httptest.NewRequest(http.MethodPost, "/api/bank/import?character=Alice", strings.NewReader(csv))
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/bank/import = %d, body %s", rec.Code, rec.Body.String())
	}

	rec2 := doJSON(t, srv, http.MethodGet, "/api/bank?character=Alice", nil)
	var items []core.BankItem
	if err := json.Unmarshal(rec2.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode bank: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("bank items after import = %d, want 2 (replace semantics)", len(items))
	}

	// Missing character is a client error.
	req = httptest.NewRequest(http.MethodPost, "/api/bank/import", strings.NewReader(csv))
	rec = httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bank import without character = %d, want 400", rec.Code)
	}
}

func TestSnapshotEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	seedServer(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/api/snapshots", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/snapshots = %d, body %s", rec.Code, rec.Body.String())
	}
	var meta core.SnapshotMeta
	if err := json.Unmarshal(rec.Body.Bytes(), &meta); err != nil {
		t.Fatalf("decode snapshot meta: %v", err)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/snapshots", nil)
	var snaps []core.SnapshotMeta
	if err := json.Unmarshal(rec.Body.Bytes(), &snaps); err != nil {
		t.Fatalf("decode snapshots: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("snapshots = %d, want 1", len(snaps))
	}

	// Mutate, restore, verify the mutation is gone.
	if rec := doJSON(t, srv, http.MethodDelete, "/api/characters/Alice", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/snapshots/%d/restore", meta.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("restore = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/characters", nil)
	var chars []core.Character
	if err := json.Unmarshal(rec.Body.Bytes(), &chars); err != nil {
		t.Fatalf("decode characters: %v", err)
	}
	if len(chars) != 1 || chars[0].Name != "Alice" {
		t.Errorf("restored characters = %+v, want [Alice]", chars)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/snapshots/999/restore", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("restore missing snapshot = %d, want 404", rec.Code)
	}
}

func TestSetHoursEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	seedServer(t, srv)

	body := map[string]float64{"hoursPerDay": 6}
	if rec := doJSON(t, srv, http.MethodPut, "/api/settings/hours", body); rec.Code != http.StatusNoContent {
		t.Fatalf("PUT /api/settings/hours = %d", rec.Code)
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/dataset", nil)
	var d core.Dataset
	if err := json.Unmarshal(rec.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode dataset: %v", err)
	}
	if d.HoursPerDay != 6 {
		t.Errorf("HoursPerDay = %v, want 6", d.HoursPerDay)
	}
}

func TestSecurityHeadersPresent(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/overview", nil)
	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy"} {
		if rec.Header().Get(h) == "" {
			t.Errorf("missing security header %s", h)
		}
	}
}
