package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/samplauncher/internal/config"
	"github.com/woozymasta/samplauncher/internal/fake"
	"github.com/woozymasta/samplauncher/internal/game"
	"github.com/woozymasta/samplauncher/internal/models"
	"github.com/woozymasta/samplauncher/internal/protocol"
	"github.com/woozymasta/samplauncher/internal/storage"
)

const testToken = "secret"

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.AuthToken = testToken
	cfg.Query = config.Query{Timeout: 300 * time.Millisecond, BufferSize: 2048}
	cfg.Handshake = config.Handshake{Timeout: 300 * time.Millisecond, ReadSize: 1024}
	cfg.RateLimit = config.RateLimit{HardLimitCount: 100, HardLimitWin: time.Minute, SoftLimitDur: time.Minute}
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *storage.Repository, http.Handler) {
	t.Helper()

	store, err := storage.New(filepath.Join(t.TempDir(), "samp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	s, err := New(store, nil, cfg)
	require.NoError(t, err)

	handler := s.Run()
	t.Cleanup(s.StopWorkers)

	return s, store, handler
}

func startFake(t *testing.T, opts fake.Options) *fake.Server {
	t.Helper()

	srv, err := fake.Start(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	return srv
}

func do(handler http.Handler, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec
}

func queryURL(ip string, port int) string {
	return "/api/query?ip=" + ip + "&port=" + strconv.Itoa(port)
}

func adminHeader() http.Header {
	return http.Header{"Authorization": {"Bearer " + testToken}}
}

func TestQuery_LiveThenCached(t *testing.T) {
	srv := startFake(t, fake.Options{Info: protocol.InfoReply{Hostname: "Live", GameMode: "RP", PlayersOnline: 3, MaxPlayers: 10}})
	_, store, handler := newTestServer(t, testConfig())

	rec := do(handler, http.MethodGet, queryURL(srv.IP(), srv.QueryPort()), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get(CacheHeader))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	var info models.ServerInfo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
	assert.Equal(t, "Live", info.Hostname)
	assert.Equal(t, 3, info.PlayersOnline)

	stored, err := store.GetServer(srv.IP(), srv.QueryPort())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, int64(1), stored.Count)

	rec = do(handler, http.MethodGet, queryURL(srv.IP(), srv.QueryPort()), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get(CacheHeader))

	stored, err = store.GetServer(srv.IP(), srv.QueryPort())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Count)
}

func TestQuery_Unreachable(t *testing.T) {
	srv := startFake(t, fake.Options{Mode: fake.ModeSilent})
	_, store, handler := newTestServer(t, testConfig())

	rec := do(handler, http.MethodGet, queryURL(srv.IP(), srv.QueryPort()), "", nil)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Contains(t, rec.Body.String(), "server unreachable")

	stored, err := store.GetServer(srv.IP(), srv.QueryPort())
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestQuery_BadParams(t *testing.T) {
	_, _, handler := newTestServer(t, testConfig())

	for _, target := range []string{
		"/api/query",
		"/api/query?ip=127.0.0.1",
		"/api/query?ip=127.0.0.1&port=abc",
		"/api/query?ip=127.0.0.1&port=70000",
		"/api/query?ip=example.com&port=7777",
		"/api/query?ip=::1&port=7777",
		"/api/query?ip=::ffff:127.0.0.1&port=7777",
	} {
		rec := do(handler, http.MethodGet, target, "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestQuery_AllowedHosts(t *testing.T) {
	cfg := testConfig()
	cfg.Server.AllowedHosts = []string{"10.0.0.1"}
	_, _, handler := newTestServer(t, cfg)

	rec := do(handler, http.MethodGet, queryURL("127.0.0.1", 7777), "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestQuery_HardLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.HardLimitCount = 1
	_, _, handler := newTestServer(t, cfg)

	rec := do(handler, http.MethodGet, "/api/query", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(handler, http.MethodGet, "/api/query", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestConnect(t *testing.T) {
	tests := []struct {
		name   string
		code   byte
		status string
		reason string
	}{
		{"success", protocol.ResponseSuccess, "success", ""},
		{"wrong password", protocol.ResponseWrongPassword, "failed", game.ReasonWrongPassword},
		{"banned", protocol.ResponseBanned, "failed", game.ReasonBanned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := startFake(t, fake.Options{ResponseCode: tt.code})
			_, _, handler := newTestServer(t, testConfig())

			body := `{"ip":"` + srv.IP() + `","port":` + strconv.Itoa(srv.HandshakePort()) + `,"username":"Player","password":"pw"}`
			rec := do(handler, http.MethodPost, "/api/connect", body, nil)
			require.Equal(t, http.StatusOK, rec.Code)

			var resp models.ConnectResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.status, resp.Status)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, resp.Reason)
			} else {
				assert.Empty(t, resp.Reason)
			}
		})
	}
}

func TestConnect_Validation(t *testing.T) {
	_, _, handler := newTestServer(t, testConfig())

	tests := []struct {
		body string
		want string
	}{
		{`not json`, "invalid json"},
		{`{"ip":"127.0.0.1","port":7777,"password":"pw"}`, "username is required"},
		{`{"ip":"127.0.0.1","port":7777,"username":"Player"}`, "password is required"},
		{`{"port":7777,"username":"Player","password":"pw"}`, "missing ip"},
		{`{"ip":"127.0.0.1","port":-1,"username":"Player","password":"pw"}`, "invalid port"},
	}

	for _, tt := range tests {
		rec := do(handler, http.MethodPost, "/api/connect", tt.body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tt.body)
		assert.Contains(t, rec.Body.String(), tt.want, tt.body)
	}
}

func TestValidTarget_Canonical(t *testing.T) {
	ip, err := validTarget("010.000.0.001", 7777)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", ip)

	_, err = validTarget("::ffff:10.0.0.1", 7777)
	assert.EqualError(t, err, "ip must be an IPv4 address")
}

func TestQuery_CanonicalAddress(t *testing.T) {
	srv := startFake(t, fake.Options{Info: protocol.InfoReply{Hostname: "Padded"}})
	_, store, handler := newTestServer(t, testConfig())

	rec := do(handler, http.MethodGet, queryURL("127.000.000.001", srv.QueryPort()), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := store.GetServer("127.0.0.1", srv.QueryPort())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Padded", stored.Hostname)
}

func TestValidateConnect_DefaultPort(t *testing.T) {
	req := models.ConnectRequest{IP: "127.0.0.1", Username: "Player", Password: "pw"}
	require.NoError(t, validateConnect(&req))
	assert.Equal(t, config.DefaultPort, req.Port)
}

func TestAdminEndpoints(t *testing.T) {
	_, store, handler := newTestServer(t, testConfig())

	record := models.NewServerRecord(models.ServerInfo{IP: "10.0.0.1", Port: 7777, Hostname: "Stored"}, "DE", time.Now())
	require.NoError(t, store.UpsertServer(record))

	rec := do(handler, http.MethodGet, "/api/servers", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(handler, http.MethodGet, "/api/servers", "", adminHeader())
	require.Equal(t, http.StatusOK, rec.Code)
	var servers []models.ServerRecord
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&servers))
	require.Len(t, servers, 1)
	assert.Equal(t, "DE", servers[0].CountryCode)

	rec = do(handler, http.MethodGet, "/api/server?ip=10.0.0.1&port=7777", "", adminHeader())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Stored")

	rec = do(handler, http.MethodDelete, "/api/server?ip=10.0.0.1&port=7777", "", adminHeader())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(handler, http.MethodGet, "/api/server?ip=10.0.0.1&port=7777", "", adminHeader())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminEndpoints_EmptyList(t *testing.T) {
	_, _, handler := newTestServer(t, testConfig())

	rec := do(handler, http.MethodGet, "/api/servers", "", adminHeader())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestVersion(t *testing.T) {
	_, _, handler := newTestServer(t, testConfig())

	rec := do(handler, http.MethodGet, "/api/version", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"samplauncher"`)
}

func TestExpireSeen(t *testing.T) {
	s, _, _ := newTestServer(t, testConfig())
	now := time.Now()

	s.seenCache.Store("old", now.Add(-2*time.Minute))
	s.seenCache.Store("fresh", now)
	s.seenCache.Store("bad", "value")
	s.expireSeen(now)

	_, ok := s.seenCache.Load("old")
	assert.False(t, ok)
	_, ok = s.seenCache.Load("bad")
	assert.False(t, ok)
	assert.True(t, s.recentlySeen("fresh"))
}

func TestGetRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")

	assert.Equal(t, "192.0.2.1", GetRealIP(req, false))
	assert.Equal(t, "203.0.113.5", GetRealIP(req, true))

	req.Header.Set("CF-Connecting-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", GetRealIP(req, true))
}
