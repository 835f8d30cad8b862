package server

import (
	"sync"
	"time"

	"github.com/woozymasta/samplauncher/internal/config"
	"github.com/woozymasta/samplauncher/internal/game"
	"github.com/woozymasta/samplauncher/internal/geoip"
	"github.com/woozymasta/samplauncher/internal/storage"
)

// Server holds the dependencies, configuration, and runtime state required
// to handle HTTP requests.
type Server struct {
	// storage keeps the last known info of every queried server.
	storage *storage.Repository

	// geoip resolves server addresses to country codes.
	// It can be nil if the GeoIP database is not initialized.
	geoip *geoip.Provider

	// querier runs live info queries for /api/query and is safe for concurrent use.
	querier *game.Querier

	// allowedHosts is a set of hashed server IPs (using xxhash) the API may contact.
	// An empty set allows any host.
	allowedHosts map[uint64]struct{}

	// shutdown is closed to stop background routines.
	shutdown chan struct{}

	// seenCache maps "ip:port" to the time the server was last queried live.
	// Queries repeated within softLimitDur are answered from storage.
	seenCache sync.Map

	// authToken is the secret token required to access administrative API endpoints.
	authToken string

	// handshake holds options for the sessions opened by /api/connect.
	handshake config.Handshake

	// stopOnce guards closing shutdown.
	stopOnce sync.Once

	// wg waits for background routines.
	wg sync.WaitGroup

	// hardLimitCount is the maximum number of requests allowed per client IP
	// within the hardLimitWin duration.
	hardLimitCount int

	// hardLimitWin is the time window duration for the hard rate limiter.
	hardLimitWin time.Duration

	// softLimitDur is the window in which a stored query result is reused.
	softLimitDur time.Duration

	// trustProxy indicates whether the server should trust headers like X-Forwarded-For
	// or CF-Connecting-IP when determining the client's real IP address.
	trustProxy bool
}
