package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"

	"github.com/ayusman/fingerspell/internal/gesture"
	"github.com/ayusman/fingerspell/internal/session"
	"github.com/ayusman/fingerspell/internal/store"
)

// SessionHandler handles HTTP requests for recognition sessions.
type SessionHandler struct {
	store    *store.Store
	sessions *session.Manager
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(s *store.Store, sessions *session.Manager) *SessionHandler {
	return &SessionHandler{store: s, sessions: sessions}
}

type createSessionRequest struct {
	Targets string `json:"targets"`
}

type sessionResponse struct {
	ID        string  `json:"id"`
	Source    string  `json:"source"`
	Targets   string  `json:"targets,omitempty"`
	Live      bool    `json:"live"`
	CreatedAt string  `json:"created_at"`
	EndedAt   *string `json:"ended_at,omitempty"`
	// Age and Duration are for display, e.g. "3 minutes ago" and "12 seconds".
	Age      string `json:"age"`
	Duration string `json:"duration,omitempty"`
	Frames   struct {
		Processed int64 `json:"processed"`
		Dropped   int64 `json:"dropped"`
		Malformed int64 `json:"malformed"`
		Duplicate int64 `json:"duplicate"`
	} `json:"frames"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type detectionResponse struct {
	Letter     string  `json:"letter"`
	Confidence float64 `json:"confidence"`
	SinceMs    int64   `json:"since_ms"`
	CreatedAt  string  `json:"created_at"`
}

type listDetectionsResponse struct {
	Detections []detectionResponse `json:"detections"`
	Counts     map[string]int      `json:"counts"`
}

func (h *SessionHandler) toResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:        s.ID,
		Source:    s.Source,
		Targets:   s.Targets,
		Live:      h.sessions.IsLive(s.ID),
		CreatedAt: formatTime(s.CreatedAt),
		Age:       humanize.Time(s.CreatedAt),
	}
	if s.EndedAt != nil {
		ended := formatTime(*s.EndedAt)
		resp.EndedAt = &ended
		resp.Duration = humanDuration(s.CreatedAt, *s.EndedAt)
	}
	resp.Frames.Processed = s.FramesProcessed
	resp.Frames.Dropped = s.FramesDropped
	resp.Frames.Malformed = s.FramesMalformed
	resp.Frames.Duplicate = s.FramesDuplicate
	return resp
}

// humanDuration renders the time between two instants without a label,
// e.g. "2 minutes".
func humanDuration(from, to time.Time) string {
	return strings.TrimSpace(humanize.RelTime(from, to, "", ""))
}

// List handles GET /api/sessions.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{Sessions: make([]sessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, h.toResponse(s))
	}
	writeJSON(w, http.StatusOK, response)
}

// Create handles POST /api/sessions. The body is optional.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	s, err := h.sessions.Create(store.SourceWebSocket, req.Targets)
	if err != nil {
		if errors.Is(err, gesture.ErrUnknownLetter) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, h.toResponse(s))
}

// Get handles GET /api/sessions/{id}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(s))
}

// Detections handles GET /api/sessions/{id}/detections.
func (h *SessionHandler) Detections(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	dets, err := h.store.Detections().ListBySession(s.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list detections")
		return
	}
	counts, err := h.store.Detections().CountByLetter(s.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count detections")
		return
	}

	response := listDetectionsResponse{
		Detections: make([]detectionResponse, 0, len(dets)),
		Counts:     counts,
	}
	for _, d := range dets {
		response.Detections = append(response.Detections, detectionResponse{
			Letter:     d.Letter,
			Confidence: d.Confidence,
			SinceMs:    d.SinceMs,
			CreatedAt:  formatTime(d.CreatedAt),
		})
	}
	writeJSON(w, http.StatusOK, response)
}

// Delete handles DELETE /api/sessions/{id}. Live sessions cannot be deleted.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if h.sessions.IsLive(id) {
		writeError(w, http.StatusConflict, "Session is streaming")
		return
	}

	if err := h.store.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) lookup(w http.ResponseWriter, id string) (*store.Session, bool) {
	s, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return nil, false
	}
	return s, true
}
