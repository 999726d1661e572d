package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/TattooNOW/tattoonow-show/internal/broadcast"
	"github.com/TattooNOW/tattoonow-show/internal/control"
	"github.com/TattooNOW/tattoonow-show/internal/models"
	"github.com/TattooNOW/tattoonow-show/internal/rundown"
	"github.com/TattooNOW/tattoonow-show/internal/services"
)

// PresentationHandler handles HTTP requests for shows and their compiled
// slide sequences
type PresentationHandler struct {
	store     *services.ShowStore
	sessions  *services.SessionManager
	wsService *services.WebSocketService
}

// NewPresentationHandler creates a new presentation handler
func NewPresentationHandler(store *services.ShowStore, sessions *services.SessionManager, wsService *services.WebSocketService) *PresentationHandler {
	return &PresentationHandler{
		store:     store,
		sessions:  sessions,
		wsService: wsService,
	}
}

// StatusResponse is the body of error and acknowledgement responses
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SlidesResponse is the compiled slide sequence of one show
type SlidesResponse struct {
	Status       string                 `json:"status"` // ok or empty
	ShowID       string                 `json:"showId"`
	Episode      models.Episode         `json:"episode"`
	Slides       []models.Slide         `json:"slides"`
	SlideEntries []int                  `json:"slideEntries"`
	EntrySlides  []rundown.Span         `json:"entrySlides"`
	Diagnostics  []rundown.Diagnostic   `json:"diagnostics"`
	TapeFailures []services.TapeFailure `json:"tapeFailures"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeError maps service errors onto HTTP statuses
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrShowNotFound),
		errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrDeviceNotFound):
		writeJSON(w, http.StatusNotFound, StatusResponse{Status: "not_found", Message: err.Error()})
	case errors.Is(err, services.ErrInvalidID),
		errors.Is(err, control.ErrUnknownCommand),
		errors.Is(err, services.ErrButtonUnbound):
		writeJSON(w, http.StatusBadRequest, StatusResponse{Status: "invalid", Message: err.Error()})
	case errors.Is(err, services.ErrDeviceInactive):
		writeJSON(w, http.StatusConflict, StatusResponse{Status: "inactive", Message: err.Error()})
	default:
		log.Printf("Request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, StatusResponse{Status: "error", Message: err.Error()})
	}
}

// ListShows returns the ids of all shows on disk
// GET /api/shows
func (h *PresentationHandler) ListShows(w http.ResponseWriter, r *http.Request) {
	ids, err := h.store.ListShows()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

// GetShow returns a show descriptor
// GET /api/shows/{showId}
func (h *PresentationHandler) GetShow(w http.ResponseWriter, r *http.Request) {
	show, err := h.store.GetShow(r.Context(), mux.Vars(r)["showId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, show)
}

// PutShow replaces a show descriptor and recompiles its open session
// PUT /api/shows/{showId}
func (h *PresentationHandler) PutShow(w http.ResponseWriter, r *http.Request) {
	showID := mux.Vars(r)["showId"]

	var show models.Show
	if err := json.NewDecoder(r.Body).Decode(&show); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if show.ID == "" {
		show.ID = showID
	}
	if show.ID != showID {
		http.Error(w, "Show id does not match the URL", http.StatusBadRequest)
		return
	}

	if err := h.store.SaveShow(&show); err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.sessions.Get(showID); err == nil {
		if _, err := h.sessions.Reload(r.Context(), showID); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// GetSlides compiles (or reuses) the show's session and returns its slides
// GET /api/shows/{showId}/slides
func (h *PresentationHandler) GetSlides(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Open(r.Context(), mux.Vars(r)["showId"])
	if err != nil {
		writeError(w, err)
		return
	}

	comp := session.Compilation
	response := SlidesResponse{
		Status:       "ok",
		ShowID:       session.ShowID,
		Episode:      session.Show.Episode,
		Slides:       comp.Slides,
		SlideEntries: comp.SlideEntries,
		EntrySlides:  comp.EntrySlides,
		Diagnostics:  comp.Diagnostics,
		TapeFailures: session.TapeFailures,
	}
	if comp.Empty() {
		response.Status = "empty"
	}
	// Always return arrays, even if empty
	if response.Slides == nil {
		response.Slides = []models.Slide{}
	}
	if response.Diagnostics == nil {
		response.Diagnostics = []rundown.Diagnostic{}
	}
	if response.TapeFailures == nil {
		response.TapeFailures = []services.TapeFailure{}
	}
	writeJSON(w, http.StatusOK, response)
}

// StateResponse is the controller snapshot plus who is listening to it
type StateResponse struct {
	models.PresentationState
	Windows     int `json:"windows"`
	Subscribers int `json:"subscribers"`
}

// GetState returns the controller replica snapshot
// GET /api/shows/{showId}/state
func (h *PresentationHandler) GetState(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Open(r.Context(), mux.Vars(r)["showId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StateResponse{
		PresentationState: session.Controller.Snapshot(),
		Windows:           h.wsService.ClientCount(session.ShowID),
		Subscribers:       session.Bus.Subscribers(broadcast.TopicState),
	})
}

// Reload rereads the show descriptor and its tapes and recompiles
// POST /api/shows/{showId}/reload
func (h *PresentationHandler) Reload(w http.ResponseWriter, r *http.Request) {
	showID := mux.Vars(r)["showId"]
	h.store.Invalidate(showID)
	h.sessions.InvalidateTapes()

	session, err := h.sessions.Reload(r.Context(), showID)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Printf("Show %s recompiled: %d slides", showID, len(session.Compilation.Slides))
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}
