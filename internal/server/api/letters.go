package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/ayusman/fingerspell/internal/gesture"
)

// LetterHandler serves the supported alphabet.
type LetterHandler struct {
	lib *gesture.Library
}

// NewLetterHandler creates a new LetterHandler over lib.
func NewLetterHandler(lib *gesture.Library) *LetterHandler {
	return &LetterHandler{lib: lib}
}

type letterSummary struct {
	Letter string `json:"letter"`
	Motion bool   `json:"motion"`
	Hint   string `json:"hint"`
}

type listLettersResponse struct {
	Letters []letterSummary `json:"letters"`
}

type fingerResponse struct {
	Finger     string         `json:"finger"`
	Curls      []weightedName `json:"curls,omitempty"`
	Directions []weightedName `json:"directions,omitempty"`
}

type weightedName struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

type motionResponse struct {
	Description string           `json:"description"`
	DurationMs  int64            `json:"duration_ms"`
	Landmark    int              `json:"landmark"`
	Trigger     []fingerResponse `json:"trigger"`
}

type letterResponse struct {
	letterSummary
	Tolerance float64          `json:"tolerance,omitempty"`
	Fingers   []fingerResponse `json:"fingers,omitempty"`
	Movement  *motionResponse  `json:"movement,omitempty"`
}

func fingers(d *gesture.Descriptor) []fingerResponse {
	out := make([]fingerResponse, 0, len(d.Curls))
	for f := range d.Curls {
		fr := fingerResponse{Finger: gesture.Finger(f).String()}
		for _, c := range d.Curls[f] {
			fr.Curls = append(fr.Curls, weightedName{Name: c.Curl.String(), Weight: c.Weight})
		}
		for _, dir := range d.Directions[f] {
			fr.Directions = append(fr.Directions, weightedName{Name: dir.Direction.String(), Weight: dir.Weight})
		}
		if len(fr.Curls)+len(fr.Directions) > 0 {
			out = append(out, fr)
		}
	}
	return out
}

func (h *LetterHandler) summary(letter string) letterSummary {
	return letterSummary{
		Letter: letter,
		Motion: h.lib.IsMotionLetter(letter),
		Hint:   h.lib.Hint(letter),
	}
}

// List handles GET /api/letters.
func (h *LetterHandler) List(w http.ResponseWriter, r *http.Request) {
	letters := h.lib.Letters()
	response := listLettersResponse{Letters: make([]letterSummary, 0, len(letters))}
	for _, l := range letters {
		response.Letters = append(response.Letters, h.summary(l))
	}
	writeJSON(w, http.StatusOK, response)
}

// Get handles GET /api/letters/{letter}.
func (h *LetterHandler) Get(w http.ResponseWriter, r *http.Request) {
	letter := strings.ToUpper(mux.Vars(r)["letter"])
	if !h.lib.Contains(letter) {
		writeError(w, http.StatusNotFound, "Letter not found")
		return
	}

	response := letterResponse{letterSummary: h.summary(letter)}

	if spec, ok := h.lib.Motion(letter); ok {
		response.Movement = &motionResponse{
			Description: spec.Description,
			DurationMs:  spec.ExpectedDuration.Milliseconds(),
			Landmark:    spec.Landmark,
			Trigger:     fingers(spec.Trigger),
		}
		writeJSON(w, http.StatusOK, response)
		return
	}

	d, err := h.lib.Describe(letter)
	if err != nil {
		if errors.Is(err, gesture.ErrUnknownLetter) {
			writeError(w, http.StatusNotFound, "Letter not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to describe letter")
		return
	}
	response.Tolerance = d.Tolerance
	response.Fingers = fingers(d)
	writeJSON(w, http.StatusOK, response)
}
