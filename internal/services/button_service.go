package services

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/TattooNOW/tattoonow-show/internal/control"
	"github.com/TattooNOW/tattoonow-show/internal/models"
)

var (
	ErrDeviceNotFound = errors.New("control device not found")
	ErrDeviceInactive = errors.New("control device is not active")
	ErrButtonUnbound  = errors.New("button has no binding")
)

// DefaultBindings is the button layout of an unconfigured control pad
var DefaultBindings = []models.ButtonBinding{
	{ButtonID: "1", Command: string(control.CommandNext), Label: "Next"},
	{ButtonID: "2", Command: string(control.CommandPrevious), Label: "Previous"},
	{ButtonID: "3", Command: string(control.CommandToggleQR), Label: "QR"},
	{ButtonID: "4", Command: string(control.CommandToggleLowerThird), Label: "Lower third"},
	{ButtonID: "5", Command: string(control.CommandTogglePortfolioLayout), Label: "Layout"},
}

// ButtonService manages physical control pads and their button bindings
type ButtonService struct {
	database *sql.DB
}

// NewButtonService creates a new button service
func NewButtonService(database *sql.DB) *ButtonService {
	return &ButtonService{
		database: database,
	}
}

const deviceColumns = `id, mac_address, name, show_id, is_active, press_count, last_press, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*models.ControlDevice, error) {
	var device models.ControlDevice
	var lastPress sql.NullTime
	err := row.Scan(
		&device.ID,
		&device.MACAddress,
		&device.Name,
		&device.ShowID,
		&device.IsActive,
		&device.PressCount,
		&lastPress,
		&device.CreatedAt,
		&device.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastPress.Valid {
		device.LastPress = lastPress.Time
	}
	return &device, nil
}

// normalizeMAC normalizes MAC address format
func normalizeMAC(macAddress string) string {
	r := strings.NewReplacer(":", "", "-", "", " ", "")
	return strings.ToUpper(r.Replace(macAddress))
}

// RegisterDevice registers a control pad, returning the existing record when
// the MAC address is already known
func (bs *ButtonService) RegisterDevice(macAddress, name string) (*models.ControlDevice, error) {
	macAddress = normalizeMAC(macAddress)
	if len(macAddress) < 6 {
		return nil, fmt.Errorf("invalid MAC address: %q", macAddress)
	}

	existing, err := bs.GetDeviceByMAC(macAddress)
	if err == nil {
		log.Printf("Device already exists: MAC=%s", macAddress)
		return existing, nil
	}
	if !errors.Is(err, ErrDeviceNotFound) {
		return nil, err
	}

	id := fmt.Sprintf("dev_%s", macAddress[len(macAddress)-6:])
	now := time.Now()
	query := `INSERT INTO control_devices
		(id, mac_address, name, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := bs.database.Exec(query, id, macAddress, name, true, now, now); err != nil {
		return nil, fmt.Errorf("failed to insert device: %w", err)
	}

	log.Printf("Device registered: MAC=%s, ID=%s", macAddress, id)
	return bs.GetDeviceByMAC(macAddress)
}

// GetDeviceByMAC returns a device by its MAC address
func (bs *ButtonService) GetDeviceByMAC(macAddress string) (*models.ControlDevice, error) {
	macAddress = normalizeMAC(macAddress)
	row := bs.database.QueryRow(`SELECT `+deviceColumns+` FROM control_devices WHERE mac_address = ?`, macAddress)
	device, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, macAddress)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query device: %w", err)
	}
	return device, nil
}

func (bs *ButtonService) updateDevice(macAddress, query string, args ...any) error {
	result, err := bs.database.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update device: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, macAddress)
	}
	return nil
}

// AssignDeviceToShow routes a device's presses to showID
func (bs *ButtonService) AssignDeviceToShow(macAddress, showID string) error {
	macAddress = normalizeMAC(macAddress)
	err := bs.updateDevice(macAddress,
		`UPDATE control_devices SET show_id = ?, updated_at = ? WHERE mac_address = ?`,
		showID, time.Now(), macAddress)
	if err != nil {
		return err
	}
	log.Printf("Device %s assigned to show %s", macAddress, showID)
	return nil
}

// UnassignDevice detaches a device from its show
func (bs *ButtonService) UnassignDevice(macAddress string) error {
	macAddress = normalizeMAC(macAddress)
	err := bs.updateDevice(macAddress,
		`UPDATE control_devices SET show_id = '', updated_at = ? WHERE mac_address = ?`,
		time.Now(), macAddress)
	if err != nil {
		return err
	}
	log.Printf("Device %s unassigned", macAddress)
	return nil
}

// SetActive enables or disables a device
func (bs *ButtonService) SetActive(macAddress string, active bool) error {
	macAddress = normalizeMAC(macAddress)
	return bs.updateDevice(macAddress,
		`UPDATE control_devices SET is_active = ?, updated_at = ? WHERE mac_address = ?`,
		active, time.Now(), macAddress)
}

// RecordPress counts a button press and returns the device with the request
// its button is bound to
func (bs *ButtonService) RecordPress(macAddress, buttonID string) (*models.ControlDevice, control.Request, error) {
	macAddress = normalizeMAC(macAddress)

	device, err := bs.GetDeviceByMAC(macAddress)
	if err != nil {
		return nil, control.Request{}, err
	}
	if !device.IsActive {
		return nil, control.Request{}, fmt.Errorf("%w: %s", ErrDeviceInactive, macAddress)
	}

	req, err := bs.ResolveButton(device.ID, buttonID)
	if err != nil {
		return device, control.Request{}, err
	}

	now := time.Now()
	_, err = bs.database.Exec(`UPDATE control_devices
		SET press_count = press_count + 1, last_press = ?, updated_at = ?
		WHERE mac_address = ?`, now, now, macAddress)
	if err != nil {
		return nil, control.Request{}, fmt.Errorf("failed to update device press: %w", err)
	}

	device.PressCount++
	device.LastPress = now
	device.UpdatedAt = now

	log.Printf("Device press recorded: MAC=%s, Button=%s, Command=%s, Total presses=%d",
		macAddress, buttonID, req.Command, device.PressCount)
	return device, req, nil
}

// ResolveButton returns the request bound to buttonID on deviceID. Custom
// bindings take precedence over DefaultBindings.
func (bs *ButtonService) ResolveButton(deviceID, buttonID string) (control.Request, error) {
	if buttonID == "" {
		buttonID = "1"
	}
	var command, label string
	err := bs.database.QueryRow(
		`SELECT command, label FROM device_bindings WHERE device_id = ? AND button_id = ?`,
		deviceID, buttonID).Scan(&command, &label)
	if err == nil {
		return control.Request{Command: command, Label: label}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return control.Request{}, fmt.Errorf("failed to query binding: %w", err)
	}
	for _, b := range DefaultBindings {
		if b.ButtonID == buttonID {
			return control.Request{Command: b.Command}, nil
		}
	}
	return control.Request{}, fmt.Errorf("%w: %s", ErrButtonUnbound, buttonID)
}

// SetBinding binds a device button to a command. Label carries the segment
// label for jumpToSegment.
func (bs *ButtonService) SetBinding(macAddress string, binding models.ButtonBinding) error {
	cmd, err := control.ParseCommand(binding.Command)
	if err != nil {
		return err
	}
	if cmd == control.CommandJumpToSegment && binding.Label == "" {
		return fmt.Errorf("jumpToSegment binding requires a label")
	}
	device, err := bs.GetDeviceByMAC(macAddress)
	if err != nil {
		return err
	}
	_, err = bs.database.Exec(`INSERT INTO device_bindings (device_id, button_id, command, label)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(device_id, button_id) DO UPDATE SET command = excluded.command, label = excluded.label`,
		device.ID, binding.ButtonID, string(cmd), binding.Label)
	if err != nil {
		return fmt.Errorf("failed to save binding: %w", err)
	}
	log.Printf("Device %s button %s bound to %s", device.MACAddress, binding.ButtonID, cmd)
	return nil
}

// Bindings returns the effective bindings of a device sorted by button
func (bs *ButtonService) Bindings(macAddress string) ([]models.ButtonBinding, error) {
	device, err := bs.GetDeviceByMAC(macAddress)
	if err != nil {
		return nil, err
	}

	effective := make(map[string]models.ButtonBinding, len(DefaultBindings))
	for _, b := range DefaultBindings {
		effective[b.ButtonID] = b
	}

	rows, err := bs.database.Query(
		`SELECT button_id, command, label FROM device_bindings WHERE device_id = ?`, device.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bindings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var b models.ButtonBinding
		if err := rows.Scan(&b.ButtonID, &b.Command, &b.Label); err != nil {
			return nil, fmt.Errorf("failed to scan binding: %w", err)
		}
		effective[b.ButtonID] = b
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]models.ButtonBinding, 0, len(effective))
	for _, b := range effective {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ButtonID < out[j].ButtonID })
	return out, nil
}

func (bs *ButtonService) queryDevices(query string, args ...any) ([]*models.ControlDevice, error) {
	rows, err := bs.database.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	devices := []*models.ControlDevice{}
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, device)
	}
	return devices, rows.Err()
}

// GetDevicesByShow returns all devices assigned to a show
func (bs *ButtonService) GetDevicesByShow(showID string) ([]*models.ControlDevice, error) {
	return bs.queryDevices(`SELECT `+deviceColumns+` FROM control_devices
		WHERE show_id = ? ORDER BY created_at DESC`, showID)
}

// GetAllDevices returns all registered devices
func (bs *ButtonService) GetAllDevices() ([]*models.ControlDevice, error) {
	return bs.queryDevices(`SELECT ` + deviceColumns + ` FROM control_devices ORDER BY created_at DESC`)
}

// DeleteDevice removes a device and its bindings
func (bs *ButtonService) DeleteDevice(macAddress string) error {
	macAddress = normalizeMAC(macAddress)
	result, err := bs.database.Exec(`DELETE FROM control_devices WHERE mac_address = ?`, macAddress)
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, macAddress)
	}
	log.Printf("Device deleted: %s", macAddress)
	return nil
}
