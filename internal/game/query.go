// Package game implements the SA-MP client side: the UDP info query and the
// TCP login handshake.
package game

import (
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"github.com/woozymasta/samplauncher/internal/config"
	"github.com/woozymasta/samplauncher/internal/logger"
	"github.com/woozymasta/samplauncher/internal/models"
	"github.com/woozymasta/samplauncher/internal/protocol"
)

// Querier requests basic server info over UDP. Each call uses its own socket,
// so a Querier is safe for concurrent use.
type Querier struct {
	decode     protocol.Decoder
	logger     zerolog.Logger
	Timeout    time.Duration
	BufferSize int
}

// NewQuerier creates a Querier from query options.
func NewQuerier(options config.Query) (*Querier, error) {
	decode, err := protocol.NewDecoder(options.Charset)
	if err != nil {
		return nil, err
	}

	q := &Querier{
		decode:     decode,
		logger:     logger.Component("query"),
		Timeout:    options.Timeout,
		BufferSize: options.BufferSize,
	}
	if q.Timeout <= 0 {
		q.Timeout = 3 * time.Second
	}
	if q.BufferSize <= 0 {
		q.BufferSize = 2048
	}

	return q, nil
}

// QueryServer runs a single info query with the given options.
// It returns nil if the server is unreachable or the reply is malformed.
func QueryServer(ip string, port int, options config.Query) *models.ServerInfo {
	q, err := NewQuerier(options)
	if err != nil {
		l := logger.Component("query")
		l.Error().Err(err).Msg("Invalid query options")
		return nil
	}

	return q.GetServerInfo(ip, port)
}

// GetServerInfo queries ip:port for basic info.
// ip must be an IPv4 literal. Every failure yields nil; the cause is only logged.
func (q *Querier) GetServerInfo(ip string, port int) *models.ServerInfo {
	info, err := q.query(ip, port)
	if err != nil {
		q.logger.Debug().
			Err(err).
			Str("ip", ip).
			Int("port", port).
			Msg("Server query failed")
		return nil
	}

	return info
}

// GetServerInfoAsync runs GetServerInfo in a goroutine and delivers its single result.
func (q *Querier) GetServerInfoAsync(ip string, port int) <-chan *models.ServerInfo {
	result := make(chan *models.ServerInfo, 1)
	go func() {
		result <- q.GetServerInfo(ip, port)
		close(result)
	}()

	return result
}

func (q *Querier) query(ip string, port int) (*models.ServerInfo, error) {
	packet, err := protocol.BuildQuery(ip, port, protocol.OpcodeInfo)
	if err != nil {
		return nil, err
	}

	// dial the octets encoded in the request, not a re-parse of ip
	o, err := protocol.IPToBytes(ip)
	if err != nil {
		return nil, err
	}

	conn, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: net.IPv4(o[0], o[1], o[2], o[3]), Port: port})
	if err != nil {
		return nil, classifyNet(err)
	}
	defer func() { _ = conn.Close() }()

	if err := conn.SetDeadline(time.Now().Add(q.Timeout)); err != nil {
		return nil, classifyNet(err)
	}

	if _, err := conn.Write(packet); err != nil {
		return nil, classifyNet(err)
	}

	buf := make([]byte, q.BufferSize)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, classifyNet(err)
	}

	reply, err := protocol.ParseInfo(buf[:n])
	if err != nil {
		return nil, protocolError(err)
	}

	info := &models.ServerInfo{
		IP:            ip,
		Port:          port,
		PlayersOnline: int(reply.PlayersOnline),
		MaxPlayers:    int(reply.MaxPlayers),
		IsPassworded:  reply.Passworded,
	}

	for _, field := range []struct {
		dst *string
		src string
	}{
		{&info.Hostname, reply.Hostname},
		{&info.GameMode, reply.GameMode},
		{&info.Language, reply.Language},
	} {
		if *field.dst, err = q.decode(field.src); err != nil {
			return nil, protocolError(fmt.Errorf("failed to decode string: %w", err))
		}
	}

	q.logger.Trace().
		Str("ip", ip).
		Int("port", port).
		Str("hostname", info.Hostname).
		Msg("Server query succeeded")

	return info, nil
}
