package game

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/samplauncher/internal/config"
	"github.com/woozymasta/samplauncher/internal/fake"
	"github.com/woozymasta/samplauncher/internal/models"
	"github.com/woozymasta/samplauncher/internal/protocol"
)

var testInfo = protocol.InfoReply{
	Hostname:      "Test Server",
	GameMode:      "DM",
	Language:      "EN",
	PlayersOnline: 5,
	MaxPlayers:    50,
}

func startFake(t *testing.T, opts fake.Options) *fake.Server {
	t.Helper()

	srv, err := fake.Start(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	return srv
}

func newTestQuerier(t *testing.T, timeout time.Duration) *Querier {
	t.Helper()

	q, err := NewQuerier(config.Query{Timeout: timeout, BufferSize: 2048})
	require.NoError(t, err)

	return q
}

func TestGetServerInfo(t *testing.T) {
	srv := startFake(t, fake.Options{Info: testInfo})
	q := newTestQuerier(t, time.Second)

	info := q.GetServerInfo(srv.IP(), srv.QueryPort())
	require.NotNil(t, info)

	assert.Equal(t, models.ServerInfo{
		Hostname:      "Test Server",
		IP:            srv.IP(),
		Port:          srv.QueryPort(),
		GameMode:      "DM",
		Language:      "EN",
		PlayersOnline: 5,
		MaxPlayers:    50,
	}, *info)
	assert.Zero(t, info.Ping)
	assert.False(t, info.IsPassworded)

	request := srv.LastQuery()
	require.Len(t, request, protocol.QueryHeaderSize)
	assert.Equal(t, "SAMP", string(request[:4]))
	assert.Equal(t, []byte{127, 0, 0, 1}, request[4:8])
	assert.Equal(t, uint16(srv.QueryPort()), binary.LittleEndian.Uint16(request[8:10]))
	assert.Equal(t, protocol.OpcodeInfo, request[10])
}

func TestGetServerInfo_Passworded(t *testing.T) {
	info := testInfo
	info.Passworded = true
	srv := startFake(t, fake.Options{Info: info})

	got := newTestQuerier(t, time.Second).GetServerInfo(srv.IP(), srv.QueryPort())
	require.NotNil(t, got)
	assert.True(t, got.IsPassworded)
}

func TestGetServerInfo_ShortReply(t *testing.T) {
	srv := startFake(t, fake.Options{Info: testInfo, Mode: fake.ModeShort})

	assert.Nil(t, newTestQuerier(t, time.Second).GetServerInfo(srv.IP(), srv.QueryPort()))
}

func TestGetServerInfo_Timeout(t *testing.T) {
	srv := startFake(t, fake.Options{Mode: fake.ModeSilent})
	q := newTestQuerier(t, 200*time.Millisecond)

	start := time.Now()
	assert.Nil(t, q.GetServerInfo(srv.IP(), srv.QueryPort()))
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestGetServerInfo_InvalidIP(t *testing.T) {
	q := newTestQuerier(t, 200*time.Millisecond)

	assert.Nil(t, q.GetServerInfo("localhost", 7777))
	assert.Nil(t, q.GetServerInfo("300.1.1.1", 7777))
}

func TestGetServerInfo_LeadingZeros(t *testing.T) {
	srv := startFake(t, fake.Options{Info: testInfo})
	q := newTestQuerier(t, 200*time.Millisecond)

	info := q.GetServerInfo("0127.000.0.01", srv.QueryPort())
	require.NotNil(t, info)
	assert.Equal(t, []byte{127, 0, 0, 1}, srv.LastQuery()[4:8])
}

func TestGetServerInfo_DialsEncodedAddress(t *testing.T) {
	srv := startFake(t, fake.Options{Info: testInfo})
	q := newTestQuerier(t, 200*time.Millisecond)

	// 010.0.0.1 is 10.0.0.1, never the local host
	assert.Nil(t, q.GetServerInfo("010.0.0.1", srv.QueryPort()))
	assert.Nil(t, srv.LastQuery())
}

func TestQuery_ErrorKinds(t *testing.T) {
	silent := startFake(t, fake.Options{Mode: fake.ModeSilent})
	short := startFake(t, fake.Options{Mode: fake.ModeShort})
	q := newTestQuerier(t, 200*time.Millisecond)

	_, err := q.query(silent.IP(), silent.QueryPort())
	assert.ErrorIs(t, err, ErrTimeout)

	_, err = q.query(short.IP(), short.QueryPort())
	assert.ErrorIs(t, err, ErrProtocol)
	assert.ErrorIs(t, err, protocol.ErrShortPacket)

	_, err = q.query("not-an-ip", 7777)
	assert.ErrorIs(t, err, protocol.ErrFormat)
}

func TestGetServerInfoAsync(t *testing.T) {
	srv := startFake(t, fake.Options{Info: testInfo})
	q := newTestQuerier(t, time.Second)

	select {
	case info := <-q.GetServerInfoAsync(srv.IP(), srv.QueryPort()):
		require.NotNil(t, info)
		assert.Equal(t, "Test Server", info.Hostname)
	case <-time.After(3 * time.Second):
		t.Fatal("async query did not complete")
	}
}

func TestGetServerInfo_Charset(t *testing.T) {
	info := testInfo
	info.Hostname = string([]byte{0xD1, 0xE5, 0xF0, 0xE2, 0xE5, 0xF0}) // "Сервер" in windows-1251
	srv := startFake(t, fake.Options{Info: info})

	q, err := NewQuerier(config.Query{Timeout: time.Second, Charset: "windows-1251"})
	require.NoError(t, err)

	got := q.GetServerInfo(srv.IP(), srv.QueryPort())
	require.NotNil(t, got)
	assert.Equal(t, "Сервер", got.Hostname)
}

func TestNewQuerier_Defaults(t *testing.T) {
	q, err := NewQuerier(config.Query{})
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, q.Timeout)
	assert.Equal(t, 2048, q.BufferSize)

	_, err = NewQuerier(config.Query{Charset: "ebcdic"})
	assert.Error(t, err)
}

func TestQueryServer(t *testing.T) {
	srv := startFake(t, fake.Options{Info: testInfo})

	info := QueryServer(srv.IP(), srv.QueryPort(), config.Query{Timeout: time.Second})
	require.NotNil(t, info)
	assert.Equal(t, "5/50", info.PlayerCountString())
}

func TestQueryServer_BadCharset(t *testing.T) {
	srv := startFake(t, fake.Options{Info: testInfo})

	assert.Nil(t, QueryServer(srv.IP(), srv.QueryPort(), config.Query{Charset: "koi9"}))
	assert.Nil(t, srv.LastQuery())
}
