package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-bacnet/internal/bacnet"
	bacnetbridge "github.com/nerrad567/gray-logic-bacnet/internal/bridges/bacnet"
	"github.com/nerrad567/gray-logic-bacnet/internal/device"
)

// maxQueryParamLen bounds identifier and query parameter lengths.
const maxQueryParamLen = 128

// deviceSummary is the list-view projection of a device.
type deviceSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Address     string `json:"address"`
	ObjectCount int    `json:"object_count"`
	FirstSeen   string `json:"first_seen"`
	LastSeen    string `json:"last_seen"`
}

// handleListDevices returns all discovered devices.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.registry.ListDevices()

	summaries := make([]deviceSummary, 0, len(devices))
	for i := range devices {
		d := &devices[i]
		summaries = append(summaries, deviceSummary{
			ID:          d.ID.String(),
			Name:        d.Name(),
			Address:     string(d.Address),
			ObjectCount: len(d.Objects),
			FirstSeen:   d.FirstSeen.UTC().Format("2006-01-02T15:04:05Z"),
			LastSeen:    d.LastSeen.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": summaries,
		"count":   len(summaries),
	})
}

// handleGetDevice returns a single device with all its objects.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := parseIDParam(w, r, "deviceID")
	if !ok {
		return
	}

	dev, err := s.registry.GetDevice(deviceID)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeBadRequest(w, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, deviceResponse(dev))
}

// handleListObjects returns the objects tracked for a device.
func (s *Server) handleListObjects(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := parseIDParam(w, r, "deviceID")
	if !ok {
		return
	}

	dev, err := s.registry.GetDevice(deviceID)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeBadRequest(w, err.Error())
		return
	}

	objects := sortedObjects(dev)
	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": dev.ID.String(),
		"objects":   objects,
		"count":     len(objects),
	})
}

// handleGetObject returns one object's merged properties.
func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	deviceID, objectID, ok := parseObjectParams(w, r)
	if !ok {
		return
	}

	obj, err := s.registry.GetObject(deviceID, objectID)
	if err != nil {
		switch {
		case errors.Is(err, device.ErrDeviceNotFound):
			writeNotFound(w, "device not found")
		case errors.Is(err, device.ErrObjectNotFound):
			writeNotFound(w, "object not found")
		default:
			writeBadRequest(w, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, objectResponse(deviceID, obj))
}

// handleGetObjectHistory returns recorded value snapshots, newest first.
//
// Query parameters:
//   - limit: max entries (default 50, capped at 200)
func (s *Server) handleGetObjectHistory(w http.ResponseWriter, r *http.Request) {
	deviceID, objectID, ok := parseObjectParams(w, r)
	if !ok {
		return
	}

	if s.history == nil {
		writeUnavailable(w, "value history unavailable")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeBadRequest(w, "invalid limit")
			return
		}
		limit = parsed
	}

	entries, err := s.history.GetHistory(r.Context(), deviceID, objectID, limit)
	if err != nil {
		s.logger.Error("value history query failed", "error", err)
		writeInternalError(w, "failed to load value history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": deviceID.String(),
		"object_id": objectID.String(),
		"history":   entries,
		"count":     len(entries),
	})
}

// readRequest is the body for POST read triggers. An empty body reads
// presentValue.
type readRequest struct {
	Property string `json:"property,omitempty"`
}

// handleReadObject submits an asynchronous property read. The decoded
// value lands in the registry and is observable via GET or WebSocket.
func (s *Server) handleReadObject(w http.ResponseWriter, r *http.Request) {
	deviceID, objectID, ok := parseObjectParams(w, r)
	if !ok {
		return
	}
	if s.bridge == nil {
		writeUnavailable(w, "protocol bridge unavailable")
		return
	}

	var req readRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
	}

	prop := bacnet.PropPresentValue
	if req.Property != "" {
		p, known := bacnet.PropertyFromName(req.Property)
		if !known {
			writeBadRequest(w, "unknown property: "+req.Property)
			return
		}
		prop = p
	}

	addr, err := s.registry.LookupAddress(deviceID)
	if err != nil {
		writeNotFound(w, "device not found")
		return
	}

	if err := s.bridge.ReadOne(objectID, prop, addr); err != nil {
		s.writeBridgeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":   "submitted",
		"property": prop.String(),
	})
}

// writeObjectRequest is the body for POST write triggers.
type writeObjectRequest struct {
	Property string `json:"property,omitempty"`
	Value    any    `json:"value"`
	Priority uint8  `json:"priority,omitempty"`
}

// handleWriteObject submits an asynchronous property write.
func (s *Server) handleWriteObject(w http.ResponseWriter, r *http.Request) {
	deviceID, objectID, ok := parseObjectParams(w, r)
	if !ok {
		return
	}
	if s.bridge == nil {
		writeUnavailable(w, "protocol bridge unavailable")
		return
	}

	var req writeObjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Value == nil {
		writeBadRequest(w, "value is required")
		return
	}

	prop := bacnet.PropPresentValue
	if req.Property != "" {
		p, known := bacnet.PropertyFromName(req.Property)
		if !known {
			writeBadRequest(w, "unknown property: "+req.Property)
			return
		}
		prop = p
	}

	priority := req.Priority
	if priority == 0 {
		priority = 16 //nolint:mnd // lowest BACnet command priority
	}
	if priority > 16 {
		writeBadRequest(w, "priority must be 1-16")
		return
	}

	addr, err := s.registry.LookupAddress(deviceID)
	if err != nil {
		writeNotFound(w, "device not found")
		return
	}

	if err := s.bridge.Write(objectID, prop, req.Value, priority, addr); err != nil {
		s.writeBridgeError(w, err)
		return
	}

	claims := claimsFromContext(r.Context())
	s.logger.Info("property write submitted",
		"device", deviceID.String(),
		"object", objectID.String(),
		"property", prop.String(),
		"user_id", claims.Subject,
	)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":   "submitted",
		"property": prop.String(),
	})
}

// subscribeRequest is the body for POST subscribe triggers.
type subscribeRequest struct {
	Confirmed *bool  `json:"confirmed,omitempty"`
	Lifetime  uint32 `json:"lifetime,omitempty"`
}

// handleSubscribeObject requests change-of-value notifications for an object.
func (s *Server) handleSubscribeObject(w http.ResponseWriter, r *http.Request) {
	deviceID, objectID, ok := parseObjectParams(w, r)
	if !ok {
		return
	}
	if s.bridge == nil {
		writeUnavailable(w, "protocol bridge unavailable")
		return
	}

	var req subscribeRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
	}

	confirmed := true
	if req.Confirmed != nil {
		confirmed = *req.Confirmed
	}

	addr, err := s.registry.LookupAddress(deviceID)
	if err != nil {
		writeNotFound(w, "device not found")
		return
	}

	if err := s.bridge.Subscribe(objectID, confirmed, addr, req.Lifetime); err != nil {
		s.writeBridgeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "submitted"})
}

// handleUnsubscribeObject cancels change-of-value notifications for an object.
func (s *Server) handleUnsubscribeObject(w http.ResponseWriter, r *http.Request) {
	deviceID, objectID, ok := parseObjectParams(w, r)
	if !ok {
		return
	}
	if s.bridge == nil {
		writeUnavailable(w, "protocol bridge unavailable")
		return
	}

	addr, err := s.registry.LookupAddress(deviceID)
	if err != nil {
		writeNotFound(w, "device not found")
		return
	}

	if err := s.bridge.Unsubscribe(objectID, addr); err != nil {
		s.writeBridgeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "submitted"})
}

// handleTriggerDiscovery broadcasts an on-demand Who-Is.
func (s *Server) handleTriggerDiscovery(w http.ResponseWriter, _ *http.Request) {
	if s.bridge == nil {
		writeUnavailable(w, "protocol bridge unavailable")
		return
	}

	if err := s.bridge.Solicit(); err != nil {
		s.writeBridgeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "submitted"})
}

// writeBridgeError maps bridge errors to HTTP responses.
func (s *Server) writeBridgeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bacnetbridge.ErrBridgeStopped):
		writeUnavailable(w, "protocol bridge stopped")
	case errors.Is(err, bacnetbridge.ErrUnknownDevice):
		writeNotFound(w, "device not found")
	default:
		writeBadRequest(w, err.Error())
	}
}

// ─── Helpers ───────────────────────────────────────────────────────

// parseIDParam parses one object identifier URL parameter, writing a 400
// response on failure.
func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (bacnet.ObjectID, bool) {
	raw := chi.URLParam(r, name)
	if raw == "" || len(raw) > maxQueryParamLen {
		writeBadRequest(w, "invalid identifier")
		return bacnet.ObjectID{}, false
	}
	id, err := bacnet.ParseObjectID(raw)
	if err != nil {
		writeBadRequest(w, "invalid identifier: "+raw)
		return bacnet.ObjectID{}, false
	}
	return id, true
}

// parseObjectParams parses the device and object identifier parameters.
func parseObjectParams(w http.ResponseWriter, r *http.Request) (deviceID, objectID bacnet.ObjectID, ok bool) {
	deviceID, ok = parseIDParam(w, r, "deviceID")
	if !ok {
		return deviceID, objectID, false
	}
	objectID, ok = parseIDParam(w, r, "objectID")
	return deviceID, objectID, ok
}

// deviceResponse renders a device with string identifiers and sorted objects.
func deviceResponse(d *device.Device) map[string]any {
	return map[string]any{
		"id":         d.ID.String(),
		"name":       d.Name(),
		"address":    string(d.Address),
		"first_seen": d.FirstSeen.UTC().Format("2006-01-02T15:04:05Z"),
		"last_seen":  d.LastSeen.UTC().Format("2006-01-02T15:04:05Z"),
		"objects":    sortedObjects(d),
	}
}

// objectResponse renders one object with string identifiers.
func objectResponse(deviceID bacnet.ObjectID, obj *device.Object) map[string]any {
	return map[string]any{
		"device_id":  deviceID.String(),
		"id":         obj.ID.String(),
		"properties": obj.Properties,
		"updated_at": obj.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// sortedObjects returns a device's objects as a stable slice.
func sortedObjects(d *device.Device) []map[string]any {
	objects := make([]map[string]any, 0, len(d.Objects))
	for _, obj := range d.Objects {
		objects = append(objects, objectResponse(d.ID, obj))
	}
	sort.Slice(objects, func(i, j int) bool {
		return objects[i]["id"].(string) < objects[j]["id"].(string) //nolint:errcheck // always set above
	})
	return objects
}
