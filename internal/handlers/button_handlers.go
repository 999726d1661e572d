package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/TattooNOW/tattoonow-show/internal/control"
	"github.com/TattooNOW/tattoonow-show/internal/models"
	"github.com/TattooNOW/tattoonow-show/internal/services"
)

// ButtonHandler handles HTTP requests for hardware control pads
type ButtonHandler struct {
	sessions      *services.SessionManager
	buttonService *services.ButtonService
}

// NewButtonHandler creates a new button handler
func NewButtonHandler(sessions *services.SessionManager, buttonService *services.ButtonService) *ButtonHandler {
	return &ButtonHandler{
		sessions:      sessions,
		buttonService: buttonService,
	}
}

// ButtonPressRequest represents a button press request
type ButtonPressRequest struct {
	MACAddress string `json:"macAddress"`
	ButtonID   string `json:"buttonId,omitempty"` // Optional: button number from device firmware
}

// ButtonPressResponse represents the response to a button press
type ButtonPressResponse struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Processed bool            `json:"processed"` // Whether a command reached a show
	Command   control.Command `json:"command,omitempty"`
	Changed   bool            `json:"changed"`
}

// RegisterDeviceRequest represents a device registration request
type RegisterDeviceRequest struct {
	MACAddress string `json:"macAddress"`
	Name       string `json:"name,omitempty"`
}

// AssignDeviceRequest represents a device assignment request
type AssignDeviceRequest struct {
	MACAddress string `json:"macAddress"`
	ShowID     string `json:"showId"`
}

// BindButtonRequest represents a button binding request
type BindButtonRequest struct {
	MACAddress string `json:"macAddress"`
	models.ButtonBinding
}

// PressButton handles button press events from control pads. Unknown pads
// are registered on their first press.
// POST /api/device/press
func (bh *ButtonHandler) PressButton(w http.ResponseWriter, r *http.Request) {
	var req ButtonPressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.MACAddress == "" {
		http.Error(w, "MAC address is required", http.StatusBadRequest)
		return
	}

	device, command, err := bh.buttonService.RecordPress(req.MACAddress, req.ButtonID)
	if errors.Is(err, services.ErrDeviceNotFound) {
		log.Printf("Device not found, attempting auto-registration: MAC=%s", req.MACAddress)
		if _, regErr := bh.buttonService.RegisterDevice(req.MACAddress, ""); regErr != nil {
			log.Printf("Auto-registration failed: %v", regErr)
			writeJSON(w, http.StatusBadRequest, ButtonPressResponse{
				Success: false,
				Message: fmt.Sprintf("Device not found and auto-registration failed: %v", regErr),
			})
			return
		}
		device, command, err = bh.buttonService.RecordPress(req.MACAddress, req.ButtonID)
	}
	if errors.Is(err, services.ErrDeviceInactive) {
		writeJSON(w, http.StatusConflict, ButtonPressResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}
	if err != nil {
		log.Printf("Button press error: %v", err)
		writeJSON(w, http.StatusBadRequest, ButtonPressResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	if device.ShowID == "" {
		writeJSON(w, http.StatusOK, ButtonPressResponse{
			Success: true,
			Message: "Device not assigned to a show",
		})
		return
	}

	session, err := bh.sessions.Open(r.Context(), device.ShowID)
	if err != nil {
		log.Printf("Button press for unavailable show %s: %v", device.ShowID, err)
		writeJSON(w, http.StatusOK, ButtonPressResponse{
			Success: true,
			Message: err.Error(),
		})
		return
	}

	result, err := control.Dispatch(session.Controller, command)
	if err != nil {
		writeJSON(w, http.StatusOK, ButtonPressResponse{
			Success: true,
			Message: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, ButtonPressResponse{
		Success:   true,
		Message:   "Button press processed successfully",
		Processed: true,
		Command:   result.Command,
		Changed:   result.Changed,
	})
}

// RegisterDevice registers a new control pad
// POST /api/device/register
func (bh *ButtonHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.MACAddress == "" {
		http.Error(w, "MAC address is required", http.StatusBadRequest)
		return
	}

	device, err := bh.buttonService.RegisterDevice(req.MACAddress, req.Name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, device)
}

// AssignDevice routes a pad's presses to a show
// POST/PUT /api/device/assign
func (bh *ButtonHandler) AssignDevice(w http.ResponseWriter, r *http.Request) {
	var req AssignDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.MACAddress == "" || req.ShowID == "" {
		http.Error(w, "MAC address and show ID are required", http.StatusBadRequest)
		return
	}

	// Compile the show to validate it exists
	if _, err := bh.sessions.Open(r.Context(), req.ShowID); err != nil {
		writeError(w, err)
		return
	}

	if err := bh.buttonService.AssignDeviceToShow(req.MACAddress, req.ShowID); err != nil {
		writeError(w, err)
		return
	}

	device, err := bh.buttonService.GetDeviceByMAC(req.MACAddress)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, device)
}

// UnassignDevice detaches a pad from its show
// POST /api/device/unassign
func (bh *ButtonHandler) UnassignDevice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MACAddress string `json:"macAddress"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.MACAddress == "" {
		http.Error(w, "MAC address is required", http.StatusBadRequest)
		return
	}

	if err := bh.buttonService.UnassignDevice(req.MACAddress); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetDeviceActive enables or disables a pad. Presses from a disabled pad are
// rejected.
// PUT /api/device/{macAddress}/active
func (bh *ButtonHandler) SetDeviceActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	macAddress := mux.Vars(r)["macAddress"]
	if err := bh.buttonService.SetActive(macAddress, req.Active); err != nil {
		writeError(w, err)
		return
	}
	device, err := bh.buttonService.GetDeviceByMAC(macAddress)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Printf("Device %s active=%v", device.ID, device.IsActive)
	writeJSON(w, http.StatusOK, device)
}

// BindButton maps one pad button to a command
// POST /api/device/bind
func (bh *ButtonHandler) BindButton(w http.ResponseWriter, r *http.Request) {
	var req BindButtonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.MACAddress == "" || req.ButtonID == "" {
		http.Error(w, "MAC address and button ID are required", http.StatusBadRequest)
		return
	}

	if err := bh.buttonService.SetBinding(req.MACAddress, req.ButtonBinding); err != nil {
		if errors.Is(err, services.ErrDeviceNotFound) || errors.Is(err, control.ErrUnknownCommand) {
			writeError(w, err)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	bindings, err := bh.buttonService.Bindings(req.MACAddress)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bindings)
}

// GetBindings returns the effective bindings of a pad
// GET /api/device/{macAddress}/bindings
func (bh *ButtonHandler) GetBindings(w http.ResponseWriter, r *http.Request) {
	bindings, err := bh.buttonService.Bindings(mux.Vars(r)["macAddress"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bindings)
}

// ListDevices returns all registered pads
// GET /api/device/list
func (bh *ButtonHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := bh.buttonService.GetAllDevices()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

// GetDevicesByShow returns all pads assigned to a show
// GET /api/device/show/{showId}
func (bh *ButtonHandler) GetDevicesByShow(w http.ResponseWriter, r *http.Request) {
	showID := mux.Vars(r)["showId"]

	if showID == "" {
		http.Error(w, "Show ID is required", http.StatusBadRequest)
		return
	}

	devices, err := bh.buttonService.GetDevicesByShow(showID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

// GetDevice returns a specific pad by MAC address
// GET /api/device/{macAddress}
func (bh *ButtonHandler) GetDevice(w http.ResponseWriter, r *http.Request) {
	device, err := bh.buttonService.GetDeviceByMAC(mux.Vars(r)["macAddress"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, device)
}

// DeleteDevice removes a pad from the system
// DELETE /api/device/{macAddress}
func (bh *ButtonHandler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	if err := bh.buttonService.DeleteDevice(mux.Vars(r)["macAddress"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
