package server

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/woozymasta/samplauncher/internal/models"
)

// CacheHeader reports whether /api/query was answered from storage ("HIT") or live ("MISS").
const CacheHeader = "X-Cache"

// handleQuery performs a live info query to ip:port and records the result.
// A server queried within the soft window is answered from storage instead.
// Query params: ?ip=1.2.3.4&port=7777
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	ip, port, err := targetFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.hostAllowed(ip) {
		writeError(w, http.StatusForbidden, "host not allowed")
		return
	}

	logCtx := zerolog.Ctx(r.Context()).With().
		Str("ip", ip).
		Int("port", port).
		Logger()

	key := net.JoinHostPort(ip, strconv.Itoa(port))
	if s.recentlySeen(key) {
		record, err := s.storage.GetServer(ip, port)
		if err != nil {
			logCtx.Error().Err(err).Msg("Failed to fetch cached server")
		} else if record != nil {
			logCtx.Trace().Msg("Served by soft limit hit")
			w.Header().Set(CacheHeader, "HIT")
			writeJSON(w, http.StatusOK, record.Info())
			return
		}
	}

	info := s.querier.GetServerInfo(ip, port)
	if info == nil {
		writeError(w, http.StatusGatewayTimeout, "server unreachable")
		return
	}

	now := time.Now()
	s.seenCache.Store(key, now)

	record := models.NewServerRecord(*info, s.geoip.CountryCode(ip), now)
	if err := s.storage.UpsertServer(record); err != nil {
		logCtx.Error().Err(err).Msg("Failed to save server to DB")
	}

	w.Header().Set(CacheHeader, "MISS")
	writeJSON(w, http.StatusOK, info)
}

// recentlySeen reports whether key was queried live within the soft window.
func (s *Server) recentlySeen(key string) bool {
	val, ok := s.seenCache.Load(key)
	if !ok {
		return false
	}

	lastSeen, ok := val.(time.Time)
	return ok && time.Since(lastSeen) < s.softLimitDur
}
