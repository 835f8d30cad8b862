package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/woozymasta/samplauncher/internal/models"
	"github.com/woozymasta/samplauncher/internal/protocol"
	"github.com/woozymasta/samplauncher/internal/vars"
)

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError responds with {"error": msg}.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// validTarget checks that ip is a dotted-quad IPv4 address and port is in range.
// It returns ip in canonical form, so "010.0.0.1" becomes "10.0.0.1".
func validTarget(ip string, port int) (string, error) {
	if ip == "" {
		return "", errors.New("missing ip")
	}

	octets, err := protocol.IPToBytes(ip)
	if err != nil {
		return "", errors.New("ip must be an IPv4 address")
	}

	if port <= 0 || port > 65535 {
		return "", errors.New("invalid port")
	}

	return protocol.BytesToIP(octets[:]), nil
}

// targetFromQuery reads and validates the ip and port query params.
func targetFromQuery(r *http.Request) (string, int, error) {
	ip := r.URL.Query().Get("ip")
	portStr := r.URL.Query().Get("port")
	if portStr == "" {
		return "", 0, errors.New("missing port")
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, errors.New("invalid port")
	}

	ip, err = validTarget(ip, port)
	if err != nil {
		return "", 0, err
	}

	return ip, port, nil
}

// handleVersion returns build information.
func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, vars.Info())
}

// handleServers returns a JSON list of all stored servers.
// This endpoint is protected by AdminAuthMiddleware.
func (s *Server) handleServers(w http.ResponseWriter, r *http.Request) {
	servers, err := s.storage.GetServers()
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to fetch servers")
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if servers == nil {
		servers = []models.ServerRecord{}
	}

	writeJSON(w, http.StatusOK, servers)
}

// handleGetServer returns the stored record of one server.
// Query params: ?ip=1.2.3.4&port=7777
func (s *Server) handleGetServer(w http.ResponseWriter, r *http.Request) {
	ip, port, err := targetFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	server, err := s.storage.GetServer(ip, port)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to fetch server")
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if server == nil {
		writeError(w, http.StatusNotFound, "server not found")
		return
	}

	writeJSON(w, http.StatusOK, server)
}

// handleDeleteServer removes a server from the database.
// Query params: ?ip=1.2.3.4&port=7777
func (s *Server) handleDeleteServer(w http.ResponseWriter, r *http.Request) {
	ip, port, err := targetFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	logCtx := zerolog.Ctx(r.Context()).With().
		Str("ip", ip).
		Int("port", port).
		Logger()

	if err := s.storage.DeleteServer(ip, port); err != nil {
		logCtx.Error().Err(err).Msg("Failed to delete server")
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.seenCache.Delete(net.JoinHostPort(ip, strconv.Itoa(port)))
	logCtx.Info().Msg("Server deleted manually")

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Server deleted"})
}
