package handlers

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(wsHandler *WebSocketHandler, presentationHandler *PresentationHandler, controlHandler *ControlHandler, buttonHandler *ButtonHandler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", controlHandler.Health).Methods("GET")

	// Window sync and device command sockets
	r.HandleFunc("/ws/shows/{showId}", wsHandler.ServeWindow)
	r.HandleFunc("/ws/shows/{showId}/control", controlHandler.ControlSocket)

	api := r.PathPrefix("/api").Subrouter()

	// Shows
	api.HandleFunc("/shows", presentationHandler.ListShows).Methods("GET")
	api.HandleFunc("/shows/{showId}", presentationHandler.GetShow).Methods("GET")
	api.HandleFunc("/shows/{showId}", presentationHandler.PutShow).Methods("PUT")
	api.HandleFunc("/shows/{showId}/slides", presentationHandler.GetSlides).Methods("GET")
	api.HandleFunc("/shows/{showId}/state", presentationHandler.GetState).Methods("GET")
	api.HandleFunc("/shows/{showId}/reload", presentationHandler.Reload).Methods("POST")
	api.HandleFunc("/shows/{showId}/control", controlHandler.PostCommand).Methods("POST")

	// Control pads
	api.HandleFunc("/device/press", buttonHandler.PressButton).Methods("POST")
	api.HandleFunc("/device/register", buttonHandler.RegisterDevice).Methods("POST")
	api.HandleFunc("/device/assign", buttonHandler.AssignDevice).Methods("POST", "PUT")
	api.HandleFunc("/device/unassign", buttonHandler.UnassignDevice).Methods("POST")
	api.HandleFunc("/device/bind", buttonHandler.BindButton).Methods("POST")
	api.HandleFunc("/device/list", buttonHandler.ListDevices).Methods("GET")
	api.HandleFunc("/device/show/{showId}", buttonHandler.GetDevicesByShow).Methods("GET")
	api.HandleFunc("/device/{macAddress}/bindings", buttonHandler.GetBindings).Methods("GET")
	api.HandleFunc("/device/{macAddress}/active", buttonHandler.SetDeviceActive).Methods("PUT")
	api.HandleFunc("/device/{macAddress}", buttonHandler.GetDevice).Methods("GET")
	api.HandleFunc("/device/{macAddress}", buttonHandler.DeleteDevice).Methods("DELETE")

	return r
}
