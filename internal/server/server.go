// Package server implements the HTTP server, middleware, and request handlers for the application.
package server

import (
	"net/http"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/woozymasta/samplauncher/internal/config"
	"github.com/woozymasta/samplauncher/internal/game"
	"github.com/woozymasta/samplauncher/internal/geoip"
	"github.com/woozymasta/samplauncher/internal/storage"
)

// New creates a new Server instance with the provided storage, GeoIP provider, and configuration.
func New(store *storage.Repository, geo *geoip.Provider, cfg *config.Config) (*Server, error) {
	querier, err := game.NewQuerier(cfg.Query)
	if err != nil {
		return nil, err
	}

	hostMap := make(map[uint64]struct{})
	for _, host := range cfg.Server.AllowedHosts {
		hash := xxhash.Sum64String(host)
		hostMap[hash] = struct{}{}
	}

	return &Server{
		storage:        store,
		geoip:          geo,
		querier:        querier,
		handshake:      cfg.Handshake,
		authToken:      cfg.Server.AuthToken,
		allowedHosts:   hostMap,
		trustProxy:     cfg.Server.TrustProxy,
		hardLimitCount: cfg.RateLimit.HardLimitCount,
		hardLimitWin:   cfg.RateLimit.HardLimitWin,
		softLimitDur:   cfg.RateLimit.SoftLimitDur,

		shutdown: make(chan struct{}),
	}, nil
}

// StartWorkers starts the soft-limit cache cleanup routine.
func (s *Server) StartWorkers() {
	s.wg.Add(1)
	go s.gcSoftLimitCache()
}

// StopWorkers stops background routines and waits for them to exit.
func (s *Server) StopWorkers() {
	s.stopOnce.Do(func() { close(s.shutdown) })
	s.wg.Wait()
}

// Run configures the HTTP routes and returns the main handler.
func (s *Server) Run() http.Handler {
	mux := http.NewServeMux()

	limited := s.RateLimitMiddleware
	mux.Handle("GET /api/query", limited(http.HandlerFunc(s.handleQuery)))
	mux.Handle("POST /api/connect", limited(http.HandlerFunc(s.handleConnect)))
	mux.Handle("GET /api/version", http.HandlerFunc(s.handleVersion))

	mux.Handle("GET /api/servers", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleServers)))
	mux.Handle("GET /api/server", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleGetServer)))
	mux.Handle("DELETE /api/server", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleDeleteServer)))

	return s.LoggingMiddleware(mux)
}

// hostAllowed reports whether the API may contact ip.
func (s *Server) hostAllowed(ip string) bool {
	if len(s.allowedHosts) == 0 {
		return true
	}

	_, ok := s.allowedHosts[xxhash.Sum64String(ip)]
	return ok
}

// gcSoftLimitCache periodically cleans up expired entries from the soft rate-limit cache.
func (s *Server) gcSoftLimitCache() {
	defer s.wg.Done()

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			s.expireSeen(time.Now())
		}
	}
}

// expireSeen drops soft cache entries older than the soft window at now.
func (s *Server) expireSeen(now time.Time) {
	s.seenCache.Range(func(key, value any) bool {
		if t, ok := value.(time.Time); !ok || now.Sub(t) > s.softLimitDur {
			s.seenCache.Delete(key)
		}
		return true
	})
}
