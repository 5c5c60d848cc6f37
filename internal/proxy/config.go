package proxy

import (
	"time"

	"github.com/die-net/socksgate/internal/credentials"
	"github.com/die-net/socksgate/internal/dialer"
	"github.com/die-net/socksgate/internal/metrics"
	"github.com/die-net/socksgate/internal/sniff"
)

// CredentialSource yields the users allowed to authenticate. It is consulted
// once per session.
type CredentialSource interface {
	Load() (credentials.Users, error)
}

type Config struct {
	// NegotiationTimeout bounds the handshake from greeting to request.
	NegotiationTimeout time.Duration

	Dialer      dialer.Dialer
	Credentials CredentialSource

	// Sniffer redirects matching sessions when set. Nil disables sniffing.
	Sniffer *sniff.Sniffer

	Metrics *metrics.Metrics
}
