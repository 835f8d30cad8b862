// Package config handles the parsing and validation of application configuration
// from command-line arguments and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/woozymasta/samplauncher/internal/logger"
	"github.com/woozymasta/samplauncher/internal/vars"
)

// Defaults for the CLI target, matching a locally hosted server.
const (
	DefaultIP   = "127.0.0.1"
	DefaultPort = 7777
)

// Command names.
const (
	CommandServe   = "serve"
	CommandQuery   = "query"
	CommandConnect = "connect"
	CommandList    = "list"
)

// Config represents the complete application flags configuration.
type Config struct {
	// betteralign:ignore

	Server    Server        `group:"Server Options" env-namespace:"SAMP"`
	Storage   Storage       `group:"Storage Options" namespace:"db" env-namespace:"SAMP_DB"`
	GeoIP     GeoIP         `group:"GeoIP Options" namespace:"geoip" env-namespace:"SAMP_GEOIP"`
	RateLimit RateLimit     `group:"Rate Limit Options" namespace:"rate-limit" env-namespace:"SAMP_RATE_LIMIT"`
	Query     Query         `group:"Query Options" namespace:"query" env-namespace:"SAMP_QUERY"`
	Handshake Handshake     `group:"Handshake Options" namespace:"handshake" env-namespace:"SAMP_HANDSHAKE"`
	Logger    logger.Config `group:"Logger Options" namespace:"log" env-namespace:"SAMP_LOG"`

	Version bool `short:"v" long:"version" description:"Print version and build info"`

	Serve    struct{}       `command:"serve" description:"Run the HTTP API (default)"`
	QueryCmd TargetCommand  `command:"query" description:"Query a server for basic info"`
	Connect  ConnectCommand `command:"connect" description:"Attempt a login handshake"`
	List     struct{}       `command:"list" description:"List servers stored in the database"`

	// Command is the name of the selected command, CommandServe when none was given.
	Command string `no-flag:"true"`
}

// Server holds web server configuration.
type Server struct {
	// betteralign:ignore

	Address      string   `short:"l" long:"address" env:"LISTEN_ADDRESS" description:"Server listen address" default:":8080"`
	AuthToken    string   `short:"t" long:"auth-token" env:"AUTH_TOKEN" description:"Admin authentication token"`
	AllowedHosts []string `short:"a" long:"allowed-host" env:"ALLOWED_HOSTS" description:"Hosts the query API may contact (empty allows any)" env-delim:","`
	TrustProxy   bool     `long:"trust-proxy" env:"TRUST_PROXY" description:"Trust X-Forwarded-For headers"`
}

// Storage holds database configuration.
type Storage struct {
	// betteralign:ignore

	Path          string `short:"d" long:"path" env:"PATH" description:"Path to SQLite database" default:"samp.db"`
	PruneEmpty    bool   `long:"prune-empty" description:"Delete servers stored without a hostname"`
	CheckAll      bool   `long:"check-all" description:"Re-query ALL stored servers. Update if UP, delete if DOWN"`
	GenerateCount int    `long:"gen-fake-data" hidden:"true"`
}

// GeoIP holds MaxMind GeoIP configuration.
type GeoIP struct {
	// betteralign:ignore

	Path     string        `short:"g" long:"path" env:"PATH" description:"Path to MMDB file" default:"samp.mmdb"`
	URL      string        `long:"url" env:"URL" description:"URL to download MMDB" default:"https://git.io/GeoLite2-Country.mmdb"`
	Interval time.Duration `long:"interval" env:"INTERVAL" description:"Update interval check" default:"24h"`
}

// Query holds server query protocol configuration.
type Query struct {
	// betteralign:ignore

	Timeout    time.Duration `long:"timeout" env:"TIMEOUT" description:"Query receive timeout" default:"3s"`
	BufferSize int           `long:"buffer-size" env:"BUFFER_SIZE" description:"Reply datagram buffer size" default:"2048"`
	Charset    string        `long:"charset" env:"CHARSET" description:"Charset of server strings (utf-8, windows-1251, windows-1252)" default:"utf-8"`
}

// Handshake holds login handshake configuration.
type Handshake struct {
	// betteralign:ignore

	Timeout  time.Duration `long:"timeout" env:"TIMEOUT" description:"Connect and read timeout" default:"5s"`
	ReadSize int           `long:"read-size" env:"READ_SIZE" description:"Maximum reply bytes read" default:"1024"`
}

// RateLimit holds API rate limiting configuration.
type RateLimit struct {
	// betteralign:ignore

	HardLimitCount int           `long:"hard-count" env:"HARD_COUNT" description:"Hard IP limit: requests count" default:"8"`
	HardLimitWin   time.Duration `long:"hard-window" env:"HARD_WINDOW" description:"Hard IP limit: window duration" default:"1m"`
	SoftLimitDur   time.Duration `long:"soft" env:"SOFT" description:"Serve stored result if the server was queried within duration" default:"30s"`
}

// Target is a server address given as positional arguments.
type Target struct {
	IP   string `positional-arg-name:"ip" description:"Server IPv4 address"`
	Port int    `positional-arg-name:"port" description:"Server port"`
}

// TargetCommand holds arguments of commands addressing a single server.
type TargetCommand struct {
	Target Target `positional-args:"true"`
}

// ConnectCommand holds arguments of the connect command.
type ConnectCommand struct {
	Username string `short:"u" long:"username" env:"SAMP_USERNAME" description:"Player name"`
	Password string `short:"p" long:"password" env:"SAMP_PASSWORD" description:"Server password"`
	Target   Target `positional-args:"true"`
}

// Parse reads the configuration from flags and environment variables.
// It terminates the application if the configuration is invalid or if the help flag is invoked.
func Parse() *Config {
	cfg, err := ParseArgs(os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		if !errors.As(err, &flagsErr) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}

	if cfg.Version {
		vars.Print()
		os.Exit(0)
	}

	return cfg
}

// ParseArgs parses args into a validated Config.
func ParseArgs(args []string) (*Config, error) {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)
	parser.NamespaceDelimiter = "-"
	parser.SubcommandsOptional = true

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	cfg.Command = CommandServe
	if parser.Active != nil {
		cfg.Command = parser.Active.Name
	}

	if cfg.Version {
		return &cfg, nil
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Command {
	case CommandServe:
		if c.Server.AuthToken == "" && c.Storage.GenerateCount == 0 && !c.Storage.PruneEmpty && !c.Storage.CheckAll {
			return errors.New("required flag `-t, --auth-token' or environment variable `SAMP_AUTH_TOKEN` was not specified")
		}
	case CommandQuery:
		c.QueryCmd.Target.applyDefaults()
	case CommandConnect:
		c.Connect.Target.applyDefaults()
		if c.Connect.Username == "" {
			return errors.New("username is required")
		}
		if c.Connect.Password == "" {
			return errors.New("password is required")
		}
	}

	if c.Query.BufferSize <= 0 || c.Handshake.ReadSize <= 0 {
		return errors.New("buffer sizes must be positive")
	}

	return nil
}

func (t *Target) applyDefaults() {
	if t.IP == "" {
		t.IP = DefaultIP
	}
	if t.Port == 0 {
		t.Port = DefaultPort
	}
}
