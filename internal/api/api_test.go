package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

const sampleNetJSON = `{
  "colorSets": ["colset INT = int;"],
  "places": [
    {"name": "start", "colorSet": "INT"},
    {"name": "end", "colorSet": "INT"}
  ],
  "transitions": [
    {
      "name": "t1",
      "variables": ["x"],
      "inArcs": [{"place": "start", "expression": "x"}],
      "outArcs": [{"place": "end", "expression": "x"}]
    }
  ],
  "initialMarking": {
    "start": {"tokens": [1, 2]}
  }
}`

func newTestServer() (*Server, *httptest.Server) {
	s := NewServer()
	mux := s.SetupRoutes()
	return s, httptest.NewServer(mux)
}

func decodeSuccess(t *testing.T, resp *http.Response) SuccessResponse {
	t.Helper()
	defer resp.Body.Close()
	var out SuccessResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return out
}

func loadSampleNet(t *testing.T, base string) {
	t.Helper()
	resp, err := http.Post(base+"/api/nets/load?id=n1", "application/json", bytes.NewBufferString(sampleNetJSON))
	if err != nil {
		t.Fatalf("unexpected error loading net: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 loading net, got %d", resp.StatusCode)
	}
}

func TestLoadAndGetNet(t *testing.T) {
	server, ts := newTestServer()
	defer ts.Close()
	defer server.Close()

	loadSampleNet(t, ts.URL)

	resp, err := http.Get(ts.URL + "/api/nets/get?id=n1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := decodeSuccess(t, resp)
	if !out.Success {
		t.Fatalf("expected success response, got %+v", out)
	}
}

func TestLoadNetDuplicateIDConflicts(t *testing.T) {
	server, ts := newTestServer()
	defer ts.Close()
	defer server.Close()

	loadSampleNet(t, ts.URL)
	resp, err := http.Post(ts.URL+"/api/nets/load?id=n1", "application/json", bytes.NewBufferString(sampleNetJSON))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 loading a duplicate net ID, got %d", resp.StatusCode)
	}
}

func TestGetTransitionsReportsEnabled(t *testing.T) {
	server, ts := newTestServer()
	defer ts.Close()
	defer server.Close()

	loadSampleNet(t, ts.URL)
	resp, err := http.Get(ts.URL + "/api/transitions/list?id=n1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := decodeSuccess(t, resp)
	data, ok := out.Data.([]interface{})
	if !ok || len(data) != 1 {
		t.Fatalf("expected exactly one transition in response, got %+v", out.Data)
	}
	tr := data[0].(map[string]interface{})
	if tr["enabled"] != true {
		t.Fatalf("expected transition to be reported enabled, got %+v", tr)
	}
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	server, ts := newTestServer()
	defer ts.Close()
	defer server.Close()

	loadSampleNet(t, ts.URL)

	createBody, _ := json.Marshal(CreateSessionRequest{ID: "s1", NetID: "n1", Name: "test"})
	resp, err := http.Post(ts.URL+"/api/sessions/create", "application/json", bytes.NewReader(createBody))
	if err != nil {
		t.Fatalf("unexpected error creating session: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 creating session, got %d", resp.StatusCode)
	}

	resp, err = http.Post(ts.URL+"/api/sessions/start?netId=n1&id=s1", "application/json", nil)
	if err != nil {
		t.Fatalf("unexpected error starting session: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 starting session, got %d", resp.StatusCode)
	}

	resp, err = http.Post(ts.URL+"/api/sessions/run?netId=n1&id=s1", "application/json", nil)
	if err != nil {
		t.Fatalf("unexpected error running session: %v", err)
	}
	out := decodeSuccess(t, resp)
	data := out.Data.(map[string]interface{})
	if data["fired"].(float64) != 2 {
		t.Fatalf("expected 2 auto firings (one per start token), got %+v", data["fired"])
	}
}

func TestDeleteNetRemovesIt(t *testing.T) {
	server, ts := newTestServer()
	defer ts.Close()
	defer server.Close()

	loadSampleNet(t, ts.URL)

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/nets/delete?id=n1", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 deleting net, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/nets/get?id=n1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after deletion, got %d", resp.StatusCode)
	}
}

func TestExploreSessionOverHTTP(t *testing.T) {
	server, ts := newTestServer()
	defer ts.Close()
	defer server.Close()

	loadSampleNet(t, ts.URL)

	resp, err := http.Post(ts.URL+"/api/sessions/create", "application/json", bytes.NewReader(mustJSON(t, CreateSessionRequest{ID: "s1", NetID: "n1", Name: "explore"})))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Post(ts.URL+"/api/sessions/start?netId=n1&id=s1", "application/json", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/api/reachability/explore?netId=n1&id=s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := decodeSuccess(t, resp)
	if !out.Success {
		t.Fatalf("expected success exploring a started session, got %+v", out)
	}
}

func TestHealthCheck(t *testing.T) {
	server, ts := newTestServer()
	defer ts.Close()
	defer server.Close()

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := decodeSuccess(t, resp)
	if !out.Success {
		t.Fatalf("expected healthy success response")
	}
}

func TestValidateNetAcceptsSampleNet(t *testing.T) {
	server, ts := newTestServer()
	defer ts.Close()
	defer server.Close()

	loadSampleNet(t, ts.URL)
	resp, err := http.Post(ts.URL+"/api/sessions/create", "application/json", bytes.NewReader(mustJSON(t, CreateSessionRequest{ID: "s1", NetID: "n1", Name: "x"})))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/api/nets/validate?id=n1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := decodeSuccess(t, resp)
	data := out.Data.(map[string]interface{})
	if data["valid"] != true {
		t.Fatalf("expected the sample net's initial marking to be structurally valid, got %+v", data)
	}
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("unexpected error marshaling: %v", err)
	}
	return b
}
