package config

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/die-net/socksgate/internal/credentials"
	"github.com/die-net/socksgate/internal/sniff"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil, envMap(nil))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != DefaultPort || cfg.ListenAddr() != "0.0.0.0:1080" {
		t.Fatalf("unexpected listen address %s", cfg.ListenAddr())
	}
	if cfg.UsersFile != credentials.DefaultPath {
		t.Fatalf("unexpected users file %q", cfg.UsersFile)
	}
	if cfg.KeepAliveInterval != 0 || cfg.Socket().KeepAlive().Enable {
		t.Fatalf("keep-alive should be disabled, got %v", cfg.KeepAliveInterval)
	}
	if cfg.Sniff {
		t.Fatal("sniffing should be off by default")
	}
	if got := cfg.Sniffer(); got.Signature != sniff.DefaultSignature || got.Target != sniff.DefaultTarget || got.Timeout != sniff.DefaultTimeout {
		t.Fatalf("unexpected sniffer config %+v", got)
	}
	if got := cfg.Dialer(); got.DialTimeout != DefaultDialTimeout || !got.Socket.NoDelay {
		t.Fatalf("unexpected dialer config %+v", got)
	}
}

func TestParseEnvironment(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		args     []string
		port     uint16
		interval time.Duration
		count    int
	}{
		{
			name: "port_from_env",
			env:  map[string]string{EnvPort: "9050"},
			port: 9050,
		},
		{
			name: "flag_overrides_env",
			env:  map[string]string{EnvPort: "9050"},
			args: []string{"--port", "1081"},
			port: 1081,
		},
		{
			name:     "keepalive",
			env:      map[string]string{EnvKeepAliveInterval: "30", EnvKeepAliveCount: "4"},
			port:     DefaultPort,
			interval: 30 * time.Second,
			count:    4,
		},
		{
			name: "unparsable_keepalive_disables",
			env:  map[string]string{EnvKeepAliveInterval: "soon", EnvKeepAliveCount: "many"},
			port: DefaultPort,
		},
		{
			name: "negative_keepalive_disables",
			env:  map[string]string{EnvKeepAliveInterval: "-5", EnvKeepAliveCount: "-1"},
			port: DefaultPort,
		},
		{
			name:     "keepalive_flags",
			args:     []string{"--keepalive-interval=15", "--keepalive-count=2"},
			port:     DefaultPort,
			interval: 15 * time.Second,
			count:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse(tt.args, envMap(tt.env))
			if err != nil {
				t.Fatal(err)
			}
			if cfg.Port != tt.port {
				t.Fatalf("port: expected %d got %d", tt.port, cfg.Port)
			}
			if cfg.KeepAliveInterval != tt.interval || cfg.KeepAliveCount != tt.count {
				t.Fatalf("keep-alive: expected %v/%d got %v/%d", tt.interval, tt.count, cfg.KeepAliveInterval, cfg.KeepAliveCount)
			}

			ka := cfg.Socket().KeepAlive()
			if ka.Enable != (tt.interval > 0) {
				t.Fatalf("keep-alive enable: got %v", ka.Enable)
			}
			if tt.interval > 0 && tt.count > 0 && ka.Count != tt.count {
				t.Fatalf("keep-alive count: expected %d got %d", tt.count, ka.Count)
			}
		})
	}
}

func TestParseUsersFileFromEnv(t *testing.T) {
	cfg, err := Parse(nil, envMap(map[string]string{EnvUsersFile: "/srv/socks/users"}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.UsersFile != "/srv/socks/users" {
		t.Fatalf("unexpected users file %q", cfg.UsersFile)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{name: "port_not_a_number", env: map[string]string{EnvPort: "socks"}},
		{name: "port_out_of_range", args: []string{"--port", "70000"}},
		{name: "negative_port", args: []string{"--port=-1"}},
		{name: "unknown_flag", args: []string{"--upstream", "direct://"}},
		{name: "positional", args: []string{"extra"}},
		{name: "empty_signature", args: []string{"--sniff", "--sniff-signature="}},
		{name: "bad_sniff_target", args: []string{"--sniff", "--sniff-target", "localhost"}},
		{name: "bad_duration", args: []string{"--dial-timeout", "forever"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.args, envMap(tt.env))
			var ce *Error
			if !errors.As(err, &ce) {
				t.Fatalf("expected *Error, got %v", err)
			}
		})
	}
}

func TestParseHelp(t *testing.T) {
	var usage bytes.Buffer
	if _, err := parse([]string{"--help"}, envMap(nil), &usage); !errors.Is(err, pflag.ErrHelp) {
		t.Fatalf("expected pflag.ErrHelp, got %v", err)
	}

	out := usage.String()
	for _, want := range []string{"--port", "--sniff-target", "success followed by an immediate close"} {
		if !strings.Contains(out, want) {
			t.Errorf("usage is missing %q:\n%s", want, out)
		}
	}
}

func TestParseSniff(t *testing.T) {
	cfg, err := Parse([]string{"--sniff", "--sniff-signature", "HTTP/1.1", "--sniff-target", "127.0.0.1:8080", "--sniff-timeout", "250ms"}, envMap(nil))
	if err != nil {
		t.Fatal(err)
	}
	got := cfg.Sniffer()
	if !cfg.Sniff || got.Signature != "HTTP/1.1" || got.Target != "127.0.0.1:8080" || got.Timeout != 250*time.Millisecond {
		t.Fatalf("unexpected sniffer config %+v", got)
	}
}
