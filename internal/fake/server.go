package fake

import (
	"errors"
	"net"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/samplauncher/internal/protocol"
)

// Mode selects how a fake server answers.
type Mode int

const (
	// ModeReply answers queries and handshakes normally.
	ModeReply Mode = iota
	// ModeSilent reads requests but never answers.
	ModeSilent
	// ModeShort answers queries with a truncated header and handshakes by closing the connection.
	ModeShort
)

// Options configure a fake server.
type Options struct {
	Info         protocol.InfoReply
	Mode         Mode
	ResponseCode byte
}

// Server is a local SA-MP responder listening on 127.0.0.1, with the query
// endpoint on UDP and the handshake endpoint on TCP.
type Server struct {
	udp  *net.UDPConn
	tcp  net.Listener
	opts Options

	mu            sync.Mutex
	conns         map[net.Conn]struct{}
	lastQuery     []byte
	lastHandshake []byte

	wg sync.WaitGroup
}

// Start listens on ephemeral loopback ports and serves until Close.
func Start(opts Options) (*Server, error) {
	udp, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		return nil, err
	}

	tcp, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		_ = udp.Close()
		return nil, err
	}

	s := &Server{udp: udp, tcp: tcp, opts: opts, conns: make(map[net.Conn]struct{})}

	s.wg.Add(2)
	go s.serveQueries()
	go s.serveHandshakes()

	return s, nil
}

// IP returns the address the server listens on.
func (s *Server) IP() string {
	return "127.0.0.1"
}

// QueryPort returns the UDP port answering info queries.
func (s *Server) QueryPort() int {
	return s.udp.LocalAddr().(*net.UDPAddr).Port
}

// HandshakePort returns the TCP port answering handshakes.
func (s *Server) HandshakePort() int {
	return s.tcp.Addr().(*net.TCPAddr).Port
}

// LastQuery returns the last query datagram received.
func (s *Server) LastQuery() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastQuery
}

// LastHandshake returns the last handshake packet received.
func (s *Server) LastHandshake() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastHandshake
}

// Close stops both listeners, drops open handshake connections and waits
// for the serving goroutines.
func (s *Server) Close() error {
	err := errors.Join(s.udp.Close(), s.tcp.Close())

	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()

	return err
}

func (s *Server) serveQueries() {
	defer s.wg.Done()

	buf := make([]byte, 2048)
	for {
		n, remote, err := s.udp.ReadFromUDP(buf)
		if err != nil {
			return
		}

		request := append([]byte(nil), buf[:n]...)
		s.mu.Lock()
		s.lastQuery = request
		s.mu.Unlock()

		var reply []byte
		switch s.opts.Mode {
		case ModeSilent:
			continue
		case ModeShort:
			reply = []byte(protocol.Magic)
		default:
			if n < protocol.QueryHeaderSize || string(request[:4]) != protocol.Magic {
				continue
			}
			reply = protocol.BuildInfoReply(request[:protocol.QueryHeaderSize], s.opts.Info)
		}

		if _, err := s.udp.WriteToUDP(reply, remote); err != nil {
			log.Debug().Err(err).Str("remote", remote.String()).Msg("Fake query reply failed")
		}
	}
}

func (s *Server) serveHandshakes() {
	defer s.wg.Done()

	for {
		conn, err := s.tcp.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handleHandshake(conn)
	}
}

func (s *Server) handleHandshake(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	buf := make([]byte, 512)
	n, err := conn.Read(buf)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.lastHandshake = append([]byte(nil), buf[:n]...)
	s.mu.Unlock()

	switch s.opts.Mode {
	case ModeShort:
		return
	case ModeSilent:
		// hold the connection until the client gives up
		_, _ = conn.Read(buf)
		return
	}

	if _, err := conn.Write([]byte{s.opts.ResponseCode, 0, 0, 0}); err != nil {
		return
	}

	// keep the session open until the client leaves
	for {
		if _, err := conn.Read(buf); err != nil {
			return
		}
	}
}
