package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/TattooNOW/tattoonow-show/internal/control"
	"github.com/TattooNOW/tattoonow-show/internal/services"
)

// ControlHandler accepts commands from external control devices
type ControlHandler struct {
	sessions *services.SessionManager
	upgrader websocket.Upgrader
	bridge   *control.Bridge
}

// NewControlHandler creates a new control handler. bridge may be nil when no
// outbound control device is configured.
func NewControlHandler(sessions *services.SessionManager, upgrader websocket.Upgrader, bridge *control.Bridge) *ControlHandler {
	return &ControlHandler{
		sessions: sessions,
		upgrader: upgrader,
		bridge:   bridge,
	}
}

// HealthResponse reports server liveness and the external control link
type HealthResponse struct {
	Status  string `json:"status"`
	Control string `json:"control"`
}

// Health reports whether the server is up and the control device reachable
// GET /healthz
func (h *ControlHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{Status: "ok", Control: "disabled"}
	if h.bridge != nil {
		response.Control = "unavailable"
		if h.bridge.Available() {
			response.Control = "connected"
		}
	}
	writeJSON(w, http.StatusOK, response)
}

// PostCommand runs one command against the show's controller
// POST /api/shows/{showId}/control
func (h *ControlHandler) PostCommand(w http.ResponseWriter, r *http.Request) {
	var req control.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	session, err := h.sessions.Open(r.Context(), mux.Vars(r)["showId"])
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := control.Dispatch(session.Controller, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ControlSocket keeps a device connection open; each JSON command received
// is dispatched and acknowledged
// GET /ws/shows/{showId}/control
func (h *ControlHandler) ControlSocket(w http.ResponseWriter, r *http.Request) {
	showID := mux.Vars(r)["showId"]
	if _, err := h.sessions.Open(r.Context(), showID); err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Control socket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("Control device connected: show=%s remote=%s", showID, r.RemoteAddr)
	nav := services.SessionNavigator{Sessions: h.sessions, ShowID: showID}
	if err := control.ServeConn(conn, nav, true); err != nil {
		log.Printf("Control device disconnected: show=%s: %v", showID, err)
		return
	}
	log.Printf("Control device disconnected: show=%s", showID)
}
