package dialer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
)

type DirectDialer struct {
	cfg      Config
	resolver Resolver
}

func NewDirectDialer(cfg Config) *DirectDialer {
	return &DirectDialer{cfg: cfg}
}

func (d *DirectDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	targets := []string{address}
	if d.resolver != nil {
		var err error
		if targets, err = d.resolve(ctx, address); err != nil {
			return nil, fmt.Errorf("dial %s %s: %w", network, address, err)
		}
	}

	dd := net.Dialer{Timeout: d.cfg.DialTimeout, KeepAlive: -1}

	var errs []error
	for _, target := range targets {
		conn, err := dd.DialContext(ctx, network, target)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		_ = d.cfg.Socket.Apply(conn)
		return conn, nil
	}

	return nil, fmt.Errorf("dial %s %s: %w", network, address, errors.Join(errs...))
}

// resolve turns address into one host:port per resolved IP. IP literals are
// returned as is.
func (d *DirectDialer) resolve(ctx context.Context, address string) ([]string, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return []string{address}, nil
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return nil, fmt.Errorf("invalid port %q", port)
	}

	ips, err := d.resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}

	targets := make([]string, 0, len(ips))
	for _, ip := range ips {
		targets = append(targets, net.JoinHostPort(ip.String(), port))
	}
	return targets, nil
}
