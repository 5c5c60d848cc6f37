// Package config turns command-line flags and their environment fallbacks
// into the single settings value the proxy runs with.
package config

import (
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/die-net/socksgate/internal/conn"
	"github.com/die-net/socksgate/internal/credentials"
	"github.com/die-net/socksgate/internal/dialer"
	"github.com/die-net/socksgate/internal/sniff"
)

const (
	DefaultPort               = 1080
	DefaultListenHost         = "0.0.0.0"
	DefaultDialTimeout        = 10 * time.Second
	DefaultNegotiationTimeout = 10 * time.Second
)

// Environment variables consulted for flag defaults.
const (
	EnvPort              = "SOCKS5_PORT"
	EnvUsersFile         = "SOCKS5_USERS_FILE"
	EnvKeepAliveInterval = "KEEPALIVE_INTERVAL"
	EnvKeepAliveCount    = "KEEPALIVE_COUNT_MAX"
)

// Error is an invalid setting. It is fatal at startup.
type Error struct {
	Name  string
	Value string
	Err   error
}

func (e *Error) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config: invalid %s %q: %v", e.Name, e.Value, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Config is built once by Parse and not modified afterwards.
type Config struct {
	ListenHost string
	Port       uint16
	UsersFile  string

	// KeepAliveInterval enables TCP keep-alive when > 0. KeepAliveCount is
	// the number of unanswered probes before the connection is dropped; 0
	// keeps the system default.
	KeepAliveInterval time.Duration
	KeepAliveCount    int

	DialTimeout        time.Duration
	NegotiationTimeout time.Duration
	DNSServer          string

	Sniff          bool
	SniffSignature string
	SniffTarget    string
	SniffTimeout   time.Duration

	DebugListen string
	Verbose     bool
}

// ListenAddr is the address the SOCKS5 listener binds.
func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.ListenHost, strconv.Itoa(int(c.Port)))
}

// Socket returns the options applied to accepted and dialed connections.
func (c Config) Socket() conn.Options {
	return conn.Options{
		NoDelay:           true,
		KeepAliveInterval: c.KeepAliveInterval,
		KeepAliveCount:    c.KeepAliveCount,
	}
}

func (c Config) Dialer() dialer.Config {
	return dialer.Config{
		DialTimeout: c.DialTimeout,
		Socket:      c.Socket(),
		DNSServer:   c.DNSServer,
	}
}

func (c Config) Sniffer() sniff.Config {
	return sniff.Config{
		Signature: c.SniffSignature,
		Target:    c.SniffTarget,
		Timeout:   c.SniffTimeout,
	}
}

// Parse reads args (without the program name). lookupEnv supplies the
// environment; os.LookupEnv is used when it is nil. A --help request prints
// usage to stderr and returns pflag.ErrHelp.
func Parse(args []string, lookupEnv func(string) (string, bool)) (Config, error) {
	return parse(args, lookupEnv, os.Stderr)
}

func parse(args []string, lookupEnv func(string) (string, bool), usage io.Writer) (Config, error) {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	env := func(name, def string) string {
		if v, ok := lookupEnv(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	fs := pflag.NewFlagSet("socksgate", pflag.ContinueOnError)
	fs.SortFlags = false
	fs.SetOutput(usage)

	var (
		cfg  Config
		port string
	)

	fs.StringVar(&port, "port", env(EnvPort, strconv.Itoa(DefaultPort)), "SOCKS5 listen port (env "+EnvPort+")")
	fs.StringVar(&cfg.ListenHost, "listen-host", DefaultListenHost, "SOCKS5 listen host")
	fs.StringVar(&cfg.UsersFile, "users-file", env(EnvUsersFile, credentials.DefaultPath), "Credential file of username:password lines, re-read for every connection (env "+EnvUsersFile+")")

	keepAliveSecs := fs.Int("keepalive-interval", envInt(env(EnvKeepAliveInterval, "0")), "TCP keep-alive probe interval in seconds, 0 disables (env "+EnvKeepAliveInterval+")")
	fs.IntVar(&cfg.KeepAliveCount, "keepalive-count", envInt(env(EnvKeepAliveCount, "0")), "TCP keep-alive probes before dropping, 0 for system default (env "+EnvKeepAliveCount+")")

	fs.DurationVar(&cfg.DialTimeout, "dial-timeout", DefaultDialTimeout, "Timeout for outbound DNS lookup and TCP connect")
	fs.DurationVar(&cfg.NegotiationTimeout, "negotiation-timeout", DefaultNegotiationTimeout, "Timeout for the SOCKS5 handshake")
	fs.StringVar(&cfg.DNSServer, "dns-server", "", "DNS server (host[:port]) for destination names. Empty uses the system resolver.")

	fs.BoolVar(&cfg.Sniff, "sniff", false, "Inspect the first client bytes and redirect matching sessions to --sniff-target. "+
		"The CONNECT reply is then sent before connecting, so an unreachable destination shows up as success followed by an immediate close.")
	fs.StringVar(&cfg.SniffSignature, "sniff-signature", sniff.DefaultSignature, "Substring that triggers a redirect")
	fs.StringVar(&cfg.SniffTarget, "sniff-target", sniff.DefaultTarget, "Destination for redirected sessions")
	fs.DurationVar(&cfg.SniffTimeout, "sniff-timeout", sniff.DefaultTimeout, "How long to wait for the first client bytes")

	fs.StringVar(&cfg.DebugListen, "debug-listen", "", "Debug HTTP listen address exposing /debug/pprof and /metrics (e.g. 127.0.0.1:6060). Empty disables.")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Enable per-connection debug logging")

	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return Config{}, err
		}
		return Config{}, &Error{Err: err}
	}
	if fs.NArg() > 0 {
		return Config{}, &Error{Name: "argument", Value: fs.Arg(0), Err: fmt.Errorf("unexpected positional argument")}
	}

	p, err := strconv.ParseUint(strings.TrimSpace(port), 10, 16)
	if err != nil {
		return Config{}, &Error{Name: "port", Value: port, Err: err}
	}
	cfg.Port = uint16(p)

	if *keepAliveSecs > 0 {
		cfg.KeepAliveInterval = time.Duration(*keepAliveSecs) * time.Second
	}
	if cfg.KeepAliveCount < 0 {
		cfg.KeepAliveCount = 0
	}

	if cfg.Sniff {
		if cfg.SniffSignature == "" {
			return Config{}, &Error{Name: "sniff-signature", Err: fmt.Errorf("must not be empty")}
		}
		if _, _, err := net.SplitHostPort(cfg.SniffTarget); err != nil {
			return Config{}, &Error{Name: "sniff-target", Value: cfg.SniffTarget, Err: err}
		}
	}

	return cfg, nil
}

// envInt parses an environment number, falling back to 0 when it is not one.
func envInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
