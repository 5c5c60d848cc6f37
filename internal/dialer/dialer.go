package dialer

import (
	"context"
	"net"
)

// Dialer mirrors the net.Dialer interface.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// New constructs the outbound Dialer for cfg.
func New(cfg Config) Dialer {
	d := NewDirectDialer(cfg)
	if cfg.DNSServer != "" {
		d.resolver = NewDNSResolver(cfg.DNSServer, cfg.DialTimeout)
	}
	return d
}
