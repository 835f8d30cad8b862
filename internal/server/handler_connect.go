package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/woozymasta/samplauncher/internal/config"
	"github.com/woozymasta/samplauncher/internal/game"
	"github.com/woozymasta/samplauncher/internal/models"
)

const maxConnectBody = 4 << 10

// handleConnect probes a server with a login handshake and reports the outcome.
// The session is always disconnected before responding.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxConnectBody)

	var req models.ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := validateConnect(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.hostAllowed(req.IP) {
		writeError(w, http.StatusForbidden, "host not allowed")
		return
	}

	session := game.NewSession(req.IP, req.Port, s.handshake)
	outcome := session.Connect(req.Username, req.Password)
	session.Disconnect()

	var resp models.ConnectResponse
	switch o := outcome.(type) {
	case models.Success:
		resp.Status = "success"
	case models.Failed:
		resp.Status = "failed"
		resp.Reason = o.Reason
	case models.Connecting:
		resp.Status = "connecting"
	}

	zerolog.Ctx(r.Context()).Debug().
		Str("ip", req.IP).
		Int("port", req.Port).
		Str("outcome", outcome.String()).
		Msg("Handshake probe finished")

	writeJSON(w, http.StatusOK, resp)
}

// validateConnect applies the default port and checks required fields.
func validateConnect(req *models.ConnectRequest) error {
	if req.Port == 0 {
		req.Port = config.DefaultPort
	}

	ip, err := validTarget(req.IP, req.Port)
	if err != nil {
		return err
	}
	req.IP = ip

	if req.Username == "" {
		return errors.New("username is required")
	}
	if req.Password == "" {
		return errors.New("password is required")
	}

	return nil
}
