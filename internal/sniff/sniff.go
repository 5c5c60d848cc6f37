// Package sniff peeks at the first bytes a client sends through the proxy and
// redirects connections that look like a given protocol to a fixed local
// service.
package sniff

import (
	"bufio"
	"strings"
	"time"
)

const (
	DefaultSignature = "SSH"
	DefaultTarget    = "127.0.0.1:22"
	DefaultTimeout   = time.Second
)

type Config struct {
	// Signature is searched for in the client's first bytes.
	Signature string

	// Target is dialed instead of the requested destination on a match.
	Target string

	// Timeout bounds the wait for the client's first bytes.
	Timeout time.Duration
}

// ReadDeadliner is the part of net.Conn the sniffer needs to bound its wait.
type ReadDeadliner interface {
	SetReadDeadline(t time.Time) error
}

type Sniffer struct {
	cfg Config
}

func New(cfg Config) *Sniffer {
	if cfg.Signature == "" {
		cfg.Signature = DefaultSignature
	}
	if cfg.Target == "" {
		cfg.Target = DefaultTarget
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Sniffer{cfg: cfg}
}

func (s *Sniffer) Target() string { return s.cfg.Target }

// Destination returns Target and true if the client's first bytes carry the
// signature, and requested and false otherwise.
func (s *Sniffer) Destination(conn ReadDeadliner, br *bufio.Reader, requested string) (string, bool) {
	if s.Match(conn, br) {
		return s.cfg.Target, true
	}
	return requested, false
}

// Match waits up to Timeout for data on br and reports whether what has
// arrived contains the signature. The bytes stay buffered in br. The read
// deadline on conn is cleared before returning.
func (s *Sniffer) Match(conn ReadDeadliner, br *bufio.Reader) bool {
	if br.Buffered() == 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.Timeout))
		_, err := br.Peek(1)
		_ = conn.SetReadDeadline(time.Time{})
		if err != nil {
			return false
		}
	}

	head, _ := br.Peek(br.Buffered())
	return strings.Contains(strings.ToValidUTF8(string(head), "�"), s.cfg.Signature)
}
