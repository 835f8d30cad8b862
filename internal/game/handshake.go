package game

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/woozymasta/samplauncher/internal/config"
	"github.com/woozymasta/samplauncher/internal/logger"
	"github.com/woozymasta/samplauncher/internal/models"
	"github.com/woozymasta/samplauncher/internal/protocol"
)

// Status is the lifecycle state of a Session.
type Status int

// Session states. Idle and Failed accept a new Connect; Closed is final.
const (
	StatusIdle Status = iota
	StatusConnecting
	StatusConnected
	StatusFailed
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusFailed:
		return "failed"
	case StatusClosed:
		return "closed"
	}

	return "unknown"
}

// Failure reasons reported in models.Failed.
const (
	ReasonNotResponding = "server not responding"
	ReasonNoResponse    = "no response from server"
	ReasonWrongPassword = "wrong password"
	ReasonServerFull    = "server full"
	ReasonBanned        = "banned"
)

// Session is a login handshake with a single server and the TCP connection
// it leaves open on success. A Session is owned by one caller; only
// Disconnect may be called concurrently with Connect.
type Session struct {
	mu      sync.Mutex
	conn    net.Conn
	host    string
	logger  zerolog.Logger
	port    int
	status  Status
	options config.Handshake

	// Progress, when set, receives Connecting at the start of every attempt
	// and the final outcome at its end.
	Progress func(models.ConnectionOutcome)
}

// NewSession creates an idle session for host:port.
func NewSession(host string, port int, options config.Handshake) *Session {
	if options.Timeout <= 0 {
		options.Timeout = 5 * time.Second
	}
	if options.ReadSize <= 0 {
		options.ReadSize = 1024
	}

	return &Session{
		host:    host,
		port:    port,
		options: options,
		logger: logger.Component("handshake").With().
			Str("host", host).
			Int("port", port).
			Logger(),
	}
}

// Connect performs the login handshake. It never returns Connecting and
// never lets a transport error escape: every failure is a models.Failed.
//
// The password is accepted but not sent; the handshake packet has no field
// for it.
func (s *Session) Connect(username, password string) models.ConnectionOutcome {
	_ = password

	if reason, ok := s.begin(); !ok {
		return models.Failed{Reason: reason}
	}
	s.report(models.Connecting{})

	outcome := s.attempt(username)

	s.report(outcome)
	s.logger.Debug().Stringer("outcome", outcome).Msg("Handshake finished")

	return outcome
}

// ConnectAsync runs Connect in a goroutine and delivers its single result.
func (s *Session) ConnectAsync(username, password string) <-chan models.ConnectionOutcome {
	result := make(chan models.ConnectionOutcome, 1)
	go func() {
		result <- s.Connect(username, password)
		close(result)
	}()

	return result
}

// Disconnect closes the connection if open and marks the session closed.
// Close errors are ignored.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.status = StatusClosed
}

// IsConnected reports whether the handshake succeeded and the connection has
// not been closed by either side since.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status == StatusConnected && s.conn != nil
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status
}

// Read reads from the established connection. A read error other than a
// timeout means the connection is gone and the session is no longer connected.
func (s *Session) Read(p []byte) (int, error) {
	conn, err := s.established()
	if err != nil {
		return 0, err
	}

	n, err := conn.Read(p)
	if err != nil {
		s.dropIfBroken(conn, err)
	}

	return n, err
}

// Write writes to the established connection.
func (s *Session) Write(p []byte) (int, error) {
	conn, err := s.established()
	if err != nil {
		return 0, err
	}

	n, err := conn.Write(p)
	if err != nil {
		s.dropIfBroken(conn, err)
	}

	return n, err
}

// begin moves the session into Connecting, or returns why it cannot.
func (s *Session) begin() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case StatusConnecting:
		return "connection attempt in progress", false
	case StatusConnected:
		return "already connected", false
	case StatusClosed:
		return "session closed", false
	}

	s.status = StatusConnecting
	return "", true
}

func (s *Session) attempt(username string) models.ConnectionOutcome {
	address := net.JoinHostPort(s.host, strconv.Itoa(s.port))

	conn, err := net.DialTimeout("tcp", address, s.options.Timeout)
	if err != nil {
		return s.finish(nil, failure(classifyNet(err)))
	}

	s.mu.Lock()
	if s.status == StatusClosed {
		s.mu.Unlock()
		_ = conn.Close()
		return models.Failed{Reason: "session closed"}
	}
	s.conn = conn
	s.mu.Unlock()

	return s.finish(conn, s.exchange(conn, username))
}

// exchange sends the handshake and classifies the single reply.
func (s *Session) exchange(conn net.Conn, username string) models.ConnectionOutcome {
	if err := conn.SetDeadline(time.Now().Add(s.options.Timeout)); err != nil {
		return failure(classifyNet(err))
	}

	if _, err := conn.Write(protocol.BuildHandshake(username)); err != nil {
		return failure(classifyNet(err))
	}

	buf := make([]byte, s.options.ReadSize)
	n, err := conn.Read(buf)
	if n == 0 {
		if err == nil || errors.Is(err, io.EOF) {
			return models.Failed{Reason: ReasonNoResponse}
		}
		return failure(classifyNet(err))
	}

	code, err := protocol.ParseResponseCode(buf[:n])
	if err != nil {
		return failure(protocolError(err))
	}

	return outcomeForCode(code)
}

// finish records the outcome of an attempt. Non-success closes the connection.
func (s *Session) finish(conn net.Conn, outcome models.ConnectionOutcome) models.ConnectionOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusClosed {
		if conn != nil {
			_ = conn.Close()
		}
		if models.IsSuccess(outcome) {
			return models.Failed{Reason: "session closed"}
		}
		return outcome
	}

	if models.IsSuccess(outcome) {
		_ = conn.SetDeadline(time.Time{})
		s.status = StatusConnected
		return outcome
	}

	if conn != nil {
		_ = conn.Close()
	}
	s.conn = nil
	s.status = StatusFailed

	return outcome
}

func (s *Session) established() (net.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusConnected || s.conn == nil {
		return nil, &Error{Kind: ErrTransport, Err: net.ErrClosed}
	}

	return s.conn, nil
}

func (s *Session) dropIfBroken(conn net.Conn, err error) {
	if classifyNet(err).Kind == ErrTimeout {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == conn {
		_ = conn.Close()
		s.conn = nil
		s.status = StatusFailed
		s.logger.Debug().Err(err).Msg("Connection dropped")
	}
}

func (s *Session) report(outcome models.ConnectionOutcome) {
	if s.Progress != nil {
		s.Progress(outcome)
	}
}

// outcomeForCode maps a handshake response code to an outcome.
func outcomeForCode(code byte) models.ConnectionOutcome {
	switch code {
	case protocol.ResponseSuccess:
		return models.Success{}
	case protocol.ResponseWrongPassword:
		return models.Failed{Reason: ReasonWrongPassword}
	case protocol.ResponseServerFull:
		return models.Failed{Reason: ReasonServerFull}
	case protocol.ResponseBanned:
		return models.Failed{Reason: ReasonBanned}
	}

	return models.Failed{Reason: fmt.Sprintf("unknown error (code: %d)", code)}
}

// failure turns a classified error into a user-facing Failed outcome.
func failure(err *Error) models.Failed {
	switch err.Kind {
	case ErrTimeout:
		return models.Failed{Reason: ReasonNotResponding}
	case ErrTransport:
		return models.Failed{Reason: "connection error: " + err.Err.Error()}
	}

	return models.Failed{Reason: "unknown error: " + err.Err.Error()}
}
