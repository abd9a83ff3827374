package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yegors/runway-redeclaration/internal/config"
	"github.com/yegors/runway-redeclaration/internal/model"
	"github.com/yegors/runway-redeclaration/internal/session"
	"github.com/yegors/runway-redeclaration/internal/storage/sqlite"
	"github.com/yegors/runway-redeclaration/internal/storage/xmlstore"
	"github.com/yegors/runway-redeclaration/pkg/logger"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := logger.NewNop()

	store, err := xmlstore.NewStore(filepath.Join(t.TempDir(), "airports"), log)
	if err != nil {
		t.Fatal(err)
	}
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	journal, err := sqlite.NewRedeclarationStorage(db, log)
	if err != nil {
		t.Fatal(err)
	}

	service := session.NewService(store, journal, model.DefaultConstants(), log)
	router := NewRouter(service, journal, config.DefaultConfig(), log)
	srv := httptest.NewServer(router.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	return resp, buf.Bytes()
}

func expectStatus(t *testing.T, srv *httptest.Server, method, path, body string, status int) []byte {
	t.Helper()
	resp, data := do(t, srv, method, path, body)
	if resp.StatusCode != status {
		t.Fatalf("%s %s: status %d; expected %d: %s", method, path, resp.StatusCode, status, data)
	}
	return data
}

func TestRedeclareEndToEnd(t *testing.T) {
	srv := newTestServer(t)

	expectStatus(t, srv, "GET", "/api/v1/health", "", http.StatusOK)
	expectStatus(t, srv, "POST", "/api/v1/airports", `{"name":"Heathrow"}`, http.StatusCreated)
	expectStatus(t, srv, "POST", "/api/v1/airports/Heathrow/runways",
		`{"number":"09L","tora":"3902","toda":"3902","asda":"3902","lda":"3595","displaced_threshold":"306"}`,
		http.StatusCreated)
	expectStatus(t, srv, "POST", "/api/v1/airports/Heathrow/runways/09L/obstacles",
		`{"name":"crane","height":"25","length":"10","distance_centre":"20","distance_threshold":"500"}`,
		http.StatusCreated)

	data := expectStatus(t, srv, "POST", "/api/v1/airports/Heathrow/runways/09L/redeclare",
		`{"obstacle":"ob1","procedure":"landing-over"}`, http.StatusOK)
	var out session.Outcome
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Runway.Current.LDA != 2569 || out.Breakdown.Label != "Re-declared value: LDA" {
		t.Errorf("outcome = %+v", out)
	}

	data = expectStatus(t, srv, "POST", "/api/v1/airports/Heathrow/runways/09L/redeclare",
		`{"obstacle":"ob1","procedure":"2"}`, http.StatusOK)
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Runway.Current.LDA != 0 || len(out.NegativeValues) != 1 {
		t.Errorf("landing towards outcome = %+v", out)
	}

	data = expectStatus(t, srv, "GET", "/api/v1/redeclarations?airport=Heathrow", "", http.StatusOK)
	var journal struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(data, &journal); err != nil {
		t.Fatal(err)
	}
	if journal.Count != 2 {
		t.Errorf("journal count = %d", journal.Count)
	}

	window := "from=" + url.QueryEscape(time.Now().Add(-time.Hour).Format(time.RFC3339)) +
		"&to=" + url.QueryEscape(time.Now().Add(time.Hour).Format(time.RFC3339))
	data = expectStatus(t, srv, "GET", "/api/v1/redeclarations?airport=Heathrow&limit=1&"+window, "", http.StatusOK)
	if err := json.Unmarshal(data, &journal); err != nil {
		t.Fatal(err)
	}
	if journal.Count != 1 {
		t.Errorf("windowed journal count = %d", journal.Count)
	}
	data = expectStatus(t, srv, "GET", "/api/v1/redeclarations?from="+url.QueryEscape(time.Now().Add(time.Hour).Format(time.RFC3339)), "", http.StatusOK)
	if err := json.Unmarshal(data, &journal); err != nil {
		t.Fatal(err)
	}
	if journal.Count != 0 {
		t.Errorf("future journal count = %d", journal.Count)
	}
	expectStatus(t, srv, "GET", "/api/v1/redeclarations?from=yesterday", "", http.StatusBadRequest)

	data = expectStatus(t, srv, "GET", "/api/v1/airports/Heathrow/runways/09L/report?obstacle=ob1&procedure=landing-over", "", http.StatusOK)
	if !strings.Contains(string(data), "Landing/Take-off Method: LANDING OVER THE OBSTACLE") {
		t.Errorf("text report:\n%s", data)
	}
	resp, _ := do(t, srv, "GET", "/api/v1/airports/Heathrow/runways/09L/report?obstacle=ob1&procedure=4&format=xlsx", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(resp.Header.Get("Content-Type"), "spreadsheetml") {
		t.Errorf("xlsx report: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	expectStatus(t, srv, "GET", "/api/v1/airports/Heathrow/runways/09L/report?obstacle=ob1&procedure=4&format=pdf", "", http.StatusBadRequest)

	data = expectStatus(t, srv, "POST", "/api/v1/airports/Heathrow/runways/09L/reset", "", http.StatusOK)
	var state model.RunwayState
	if err := json.Unmarshal(data, &state); err != nil {
		t.Fatal(err)
	}
	if state.Current != state.Default {
		t.Errorf("reset state = %+v", state)
	}
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t)
	expectStatus(t, srv, "POST", "/api/v1/airports", `{"name":"Heathrow"}`, http.StatusCreated)

	data := expectStatus(t, srv, "POST", "/api/v1/airports/Heathrow/runways",
		`{"number":"40","tora":"abc","toda":"1","asda":"1","lda":"1","displaced_threshold":"0"}`,
		http.StatusUnprocessableEntity)
	var resp errorResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Violations) < 2 {
		t.Errorf("violations = %+v", resp.Violations)
	}

	expectStatus(t, srv, "GET", "/api/v1/airports/Gatwick", "", http.StatusNotFound)
	expectStatus(t, srv, "GET", "/api/v1/airports/Heathrow/runways/09L", "", http.StatusNotFound)
	expectStatus(t, srv, "POST", "/api/v1/airports", `{"name":`, http.StatusBadRequest)
	expectStatus(t, srv, "POST", "/api/v1/airports", `{"name":"Heathrow"}`, http.StatusUnprocessableEntity)

	expectStatus(t, srv, "POST", "/api/v1/airports/Heathrow/runways",
		`{"number":"09L","tora":"3902","toda":"3902","asda":"3902","lda":"3595","displaced_threshold":"306"}`,
		http.StatusCreated)
	expectStatus(t, srv, "POST", "/api/v1/airports/Heathrow/runways/09L/redeclare",
		`{"obstacle":"ob1","procedure":"sideways"}`, http.StatusBadRequest)
	expectStatus(t, srv, "DELETE", "/api/v1/airports/Heathrow/runways/09L/obstacles/ob1", "", http.StatusConflict)
	expectStatus(t, srv, "DELETE", "/api/v1/airports/Heathrow/runways/09L/obstacles/crane", "", http.StatusNotFound)
}

func TestImportExport(t *testing.T) {
	srv := newTestServer(t)

	doc := `<airport name="Gatwick">
  <runway runway_designator="08R">
    <TORA>3159</TORA><TODA>3363</TODA><ASDA>3255</ASDA><LDA>2895</LDA>
    <displaced_threshold>264</displaced_threshold>
    <obstacle name="crane">
      <height>20</height><length>5</length>
      <distance_threshold>700</distance_threshold><distance_centerline>10</distance_centerline>
    </obstacle>
  </runway>
</airport>`
	expectStatus(t, srv, "POST", "/api/v1/airports/import", doc, http.StatusCreated)
	expectStatus(t, srv, "POST", "/api/v1/airports/import", `<airfield/>`, http.StatusBadRequest)

	resp, data := do(t, srv, "GET", "/api/v1/airports/Gatwick/export", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, `filename="Gatwick.xml"`) {
		t.Errorf("Content-Disposition = %q", cd)
	}
	rec, err := xmlstore.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if rec.Name != "Gatwick" || len(rec.Runways) != 1 || len(rec.Runways[0].Obstacles) != 1 {
		t.Errorf("exported record = %+v", rec)
	}

	resp, _ = do(t, srv, "GET", "/api/v1/airports/Gatwick/export?filename=backup.xml", "")
	if cd := resp.Header.Get("Content-Disposition"); resp.StatusCode != http.StatusOK || !strings.Contains(cd, `filename="backup.xml"`) {
		t.Errorf("named export: %d %q", resp.StatusCode, cd)
	}
	expectStatus(t, srv, "GET", "/api/v1/airports/Gatwick/export?filename=backup.xml.bak", "", http.StatusUnprocessableEntity)
	expectStatus(t, srv, "GET", "/api/v1/airports/Gatwick/export?filename=backup.txt", "", http.StatusUnprocessableEntity)

	expectStatus(t, srv, "PUT", "/api/v1/airports/Gatwick", `{"name":"London"}`, http.StatusOK)
	expectStatus(t, srv, "GET", "/api/v1/airports/London", "", http.StatusOK)
	expectStatus(t, srv, "DELETE", "/api/v1/airports/London", "", http.StatusNoContent)
	expectStatus(t, srv, "DELETE", "/api/v1/airports/London", "", http.StatusNotFound)
}
