package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"trivia-party-service/internal/app"
)

// AdminHandler exposes the read-only administrative surface: room lookup
// by code and aggregate statistics.
type AdminHandler struct {
	registry *app.Registry
}

func NewAdminHandler(registry *app.Registry) *AdminHandler {
	return &AdminHandler{registry: registry}
}

func (h *AdminHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/stats", h.handleStats)
	mux.HandleFunc("/api/rooms/", h.handleRoom)
}

func (h *AdminHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    h.registry.Stats(),
	})
}

func (h *AdminHandler) handleRoom(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimPrefix(r.URL.Path, "/api/rooms/")
	room, ok := h.registry.Room(code)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"success": false,
			"error":   "room not found",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    room.Info(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
