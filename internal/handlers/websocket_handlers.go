package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/TattooNOW/tattoonow-show/internal/services"
)

// WebSocketHandler attaches browser windows to a show session
type WebSocketHandler struct {
	wsService *services.WebSocketService
	sessions  *services.SessionManager
	upgrader  websocket.Upgrader
}

// NewWebSocketHandler creates a new websocket handler
func NewWebSocketHandler(wsService *services.WebSocketService, sessions *services.SessionManager, upgrader websocket.Upgrader) *WebSocketHandler {
	return &WebSocketHandler{
		wsService: wsService,
		sessions:  sessions,
		upgrader:  upgrader,
	}
}

// NewUpgrader returns an upgrader accepting the given origins. An empty list
// accepts any origin.
func NewUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			return allowed[r.Header.Get("Origin")]
		},
	}
}

// ServeWindow upgrades the request and syncs the window with the show
// GET /ws/shows/{showId}?window=audience|presenter|notes
func (h *WebSocketHandler) ServeWindow(w http.ResponseWriter, r *http.Request) {
	window, err := services.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	session, err := h.sessions.Open(r.Context(), mux.Vars(r)["showId"])
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	h.wsService.Serve(r.Context(), conn, session, window)
}
