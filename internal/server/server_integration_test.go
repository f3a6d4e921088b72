package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/fingerspell/internal/gesture"
	"github.com/ayusman/fingerspell/internal/landmark"
	"github.com/ayusman/fingerspell/internal/recognizer"
	"github.com/ayusman/fingerspell/internal/session"
	"github.com/ayusman/fingerspell/internal/store"
)

const frameMs = 33

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	lib, err := gesture.NewASLLibrary()
	if err != nil {
		t.Fatalf("NewASLLibrary() error = %v", err)
	}
	sessions, err := session.NewManager(s, lib, recognizer.DefaultConfig())
	if err != nil {
		t.Fatalf("session.NewManager() error = %v", err)
	}

	ts := httptest.NewServer(New(Config{Store: s, Sessions: sessions}))
	t.Cleanup(ts.Close)
	return ts, s
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func createSession(t *testing.T, ts *httptest.Server, body string) string {
	t.Helper()
	resp, err := ts.Client().Post(ts.URL+"/api/sessions", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST /api/sessions error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var created struct {
		ID string `json:"id"`
	}
	decode(t, resp, &created)
	return created.ID
}

func dial(t *testing.T, ts *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/sessions/" + id + "/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial error = %v (status %d)", err, status)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) serverMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg serverMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return msg
}

func sendFrames(t *testing.T, conn *websocket.Conn, start int64, h landmark.Hand, n int) int64 {
	t.Helper()
	ts := start
	for i := 0; i < n; i++ {
		msg := clientMessage{Type: msgFrame, Timestamp: ts, Landmarks: h.Points[:]}
		if err := conn.WriteJSON(msg); err != nil {
			t.Fatalf("WriteJSON() error = %v", err)
		}
		ts += frameMs
		// Frames arriving while the engine is busy are dropped.
		time.Sleep(5 * time.Millisecond)
	}
	return ts
}

func TestAPI_Letters(t *testing.T) {
	ts, _ := newTestServer(t)
	client := ts.Client()

	resp, err := client.Get(ts.URL + "/api/letters")
	if err != nil {
		t.Fatalf("GET /api/letters error = %v", err)
	}
	var listed struct {
		Letters []struct {
			Letter string `json:"letter"`
			Motion bool   `json:"motion"`
			Hint   string `json:"hint"`
		} `json:"letters"`
	}
	decode(t, resp, &listed)
	if len(listed.Letters) != 26 {
		t.Fatalf("len(letters) = %d, want 26", len(listed.Letters))
	}
	motion := map[string]bool{}
	for _, l := range listed.Letters {
		motion[l.Letter] = l.Motion
	}
	if !motion["J"] || !motion["Z"] || motion["A"] {
		t.Errorf("unexpected motion flags %v", motion)
	}

	resp, _ = client.Get(ts.URL + "/api/letters/a")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/letters/a status = %d", resp.StatusCode)
	}
	var a struct {
		Letter  string `json:"letter"`
		Fingers []struct {
			Finger string `json:"finger"`
		} `json:"fingers"`
	}
	decode(t, resp, &a)
	if a.Letter != "A" || len(a.Fingers) == 0 {
		t.Errorf("unexpected letter response %+v", a)
	}

	resp, _ = client.Get(ts.URL + "/api/letters/J")
	var j struct {
		Movement *struct {
			DurationMs int64 `json:"duration_ms"`
		} `json:"movement"`
	}
	decode(t, resp, &j)
	if j.Movement == nil || j.Movement.DurationMs <= 0 {
		t.Errorf("expected J movement, got %+v", j.Movement)
	}

	resp, _ = client.Get(ts.URL + "/api/letters/7")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /api/letters/7 status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestAPI_SessionWorkflow(t *testing.T) {
	ts, _ := newTestServer(t)
	client := ts.Client()

	// 1. Create sessions, one with practice targets
	plain := createSession(t, ts, "")
	drill := createSession(t, ts, `{"targets":"ab"}`)

	resp, _ := client.Post(ts.URL+"/api/sessions", "application/json", bytes.NewBufferString(`{"targets":"a1"}`))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad targets status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	// 2. List sessions
	resp, _ = client.Get(ts.URL + "/api/sessions")
	var listed struct {
		Sessions []struct {
			ID      string `json:"id"`
			Targets string `json:"targets"`
		} `json:"sessions"`
	}
	decode(t, resp, &listed)
	if len(listed.Sessions) != 2 {
		t.Fatalf("len(sessions) = %d, want 2", len(listed.Sessions))
	}

	// 3. Get single session
	resp, _ = client.Get(ts.URL + "/api/sessions/" + drill)
	var got struct {
		Targets  string `json:"targets"`
		Live     bool   `json:"live"`
		Age      string `json:"age"`
		Duration string `json:"duration"`
	}
	decode(t, resp, &got)
	if got.Targets != "AB" || got.Live {
		t.Errorf("unexpected session %+v", got)
	}
	if got.Age != "now" && !strings.HasSuffix(got.Age, " ago") {
		t.Errorf("age = %q, want a relative time", got.Age)
	}
	if got.Duration != "" {
		t.Errorf("duration = %q for an open session, want empty", got.Duration)
	}

	// 4. Delete session
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/sessions/"+plain, nil)
	resp, _ = client.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	// 5. Verify deleted
	resp, _ = client.Get(ts.URL + "/api/sessions/" + plain)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET after delete status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestStream_DetectsLetters(t *testing.T) {
	ts, s := newTestServer(t)
	id := createSession(t, ts, `{"targets":"A"}`)

	conn := dial(t, ts, id)

	ready := readMessage(t, conn)
	if ready.Type != msgReady || ready.Session != id {
		t.Fatalf("unexpected first message %+v", ready)
	}
	if ready.Practice == nil || ready.Practice.Target != "A" {
		t.Fatalf("expected practice target A, got %+v", ready.Practice)
	}

	// A second stream for the same session is refused.
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/sessions/" + id + "/stream"
	if _, resp, err := websocket.DefaultDialer.Dial(url, nil); err == nil || resp == nil || resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for a second stream, got %v", err)
	}

	sendFrames(t, conn, 0, landmark.FistPose().Build(), 15)

	det := readMessage(t, conn)
	if det.Type != msgDetection || det.Detection == nil || det.Detection.Letter != "A" {
		t.Fatalf("expected detection of A, got %+v", det)
	}
	prog := readMessage(t, conn)
	if prog.Type != msgPractice || prog.Practice == nil || prog.Practice.Completed != 1 || prog.Practice.Matched != "A" {
		t.Fatalf("expected practice progress, got %+v", prog)
	}

	// Bad input is reported without ending the stream.
	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"wave"}`))
	if msg := readMessage(t, conn); msg.Type != msgError {
		t.Errorf("expected error message, got %+v", msg)
	}

	conn.WriteJSON(clientMessage{Type: msgSkip})
	if msg := readMessage(t, conn); msg.Type != msgPractice || msg.Practice == nil || msg.Practice.Target != "A" {
		t.Errorf("expected practice message after skip, got %+v", msg)
	}

	if err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")); err != nil {
		t.Fatalf("close error = %v", err)
	}

	// The session ends once the handler returns.
	deadline := time.Now().Add(5 * time.Second)
	var rec *store.Session
	for time.Now().Before(deadline) {
		var err error
		rec, err = s.Sessions().GetByID(id)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if !rec.Active() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if rec.Active() {
		t.Fatal("session should end when the stream closes")
	}
	if rec.FramesProcessed == 0 {
		t.Error("expected processed frames to be stored")
	}

	resp, err := ts.Client().Get(ts.URL + "/api/sessions/" + id + "/detections")
	if err != nil {
		t.Fatalf("GET detections error = %v", err)
	}
	var dets struct {
		Detections []struct {
			Letter string `json:"letter"`
		} `json:"detections"`
		Counts map[string]int `json:"counts"`
	}
	decode(t, resp, &dets)
	if len(dets.Detections) != 1 || dets.Detections[0].Letter != "A" || dets.Counts["A"] != 1 {
		t.Errorf("unexpected detections %+v", dets)
	}

	// An ended session cannot stream again.
	if _, resp, err := websocket.DefaultDialer.Dial(url, nil); err == nil || resp == nil || resp.StatusCode != http.StatusGone {
		t.Errorf("expected 410 for an ended session, got %v", err)
	}
}

func TestStream_UnknownSession(t *testing.T) {
	ts, _ := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/sessions/missing/stream"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %v", resp)
	}
}

func TestAPI_BindingWorkflow(t *testing.T) {
	ts, _ := newTestServer(t)
	client := ts.Client()

	// 1. Create a binding
	createBody := `{"letter":"l","plugin_name":"keyboard","action_name":"keystroke","config":{"key":" "}}`
	resp, err := client.Post(ts.URL+"/api/bindings", "application/json", bytes.NewBufferString(createBody))
	if err != nil {
		t.Fatalf("POST /api/bindings error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var created struct {
		ID      string          `json:"id"`
		Letter  string          `json:"letter"`
		Config  json.RawMessage `json:"config"`
		Enabled bool            `json:"enabled"`
	}
	decode(t, resp, &created)
	if created.Letter != "L" || !created.Enabled || string(created.Config) != `{"key":" "}` {
		t.Errorf("unexpected binding %+v", created)
	}

	// Invalid requests
	for _, body := range []string{
		`{"plugin_name":"keyboard","action_name":"type"}`,
		`{"letter":"?","plugin_name":"keyboard","action_name":"type"}`,
		`not json`,
	} {
		resp, _ := client.Post(ts.URL+"/api/bindings", "application/json", bytes.NewBufferString(body))
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want %d", body, resp.StatusCode, http.StatusBadRequest)
		}
	}

	// 2. Disable it
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/bindings/"+created.ID, bytes.NewBufferString(`{"enabled":false}`))
	resp, _ = client.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()

	// 3. Filtered list only shows enabled bindings
	resp, _ = client.Get(ts.URL + "/api/bindings?letter=L")
	var listed struct {
		Bindings []struct {
			ID string `json:"id"`
		} `json:"bindings"`
	}
	decode(t, resp, &listed)
	if len(listed.Bindings) != 0 {
		t.Errorf("disabled binding listed for letter: %+v", listed.Bindings)
	}

	resp, _ = client.Get(ts.URL + "/api/bindings")
	decode(t, resp, &listed)
	if len(listed.Bindings) != 1 {
		t.Errorf("len(bindings) = %d, want 1", len(listed.Bindings))
	}

	// 4. Delete and verify
	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/api/bindings/"+created.ID, nil)
	resp, _ = client.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	resp, _ = client.Get(ts.URL + "/api/bindings/" + created.ID)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET after delete status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestAPI_HealthCheck(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health error = %v", err)
	}

	var health struct {
		Status       string `json:"status"`
		Uptime       string `json:"uptime"`
		LiveSessions int    `json:"live_sessions"`
	}
	decode(t, resp, &health)

	if health.Status != "ok" {
		t.Errorf("status = %s, want ok", health.Status)
	}
	if health.LiveSessions != 0 {
		t.Errorf("live_sessions = %d, want 0", health.LiveSessions)
	}
}
