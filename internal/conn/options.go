package conn

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// Options are the socket options applied to both ends of a session.
type Options struct {
	NoDelay bool

	// KeepAliveInterval enables TCP keep-alive when > 0. It is used as both
	// the idle time before the first probe and the interval between probes.
	KeepAliveInterval time.Duration

	// KeepAliveCount is the number of unanswered probes before the
	// connection is dropped. Zero leaves the system default.
	KeepAliveCount int
}

// KeepAlive converts the options to a net.KeepAliveConfig.
func (o Options) KeepAlive() net.KeepAliveConfig {
	if o.KeepAliveInterval <= 0 {
		return net.KeepAliveConfig{Enable: false}
	}

	count := o.KeepAliveCount
	if count <= 0 {
		count = -1
	}

	return net.KeepAliveConfig{
		Enable:   true,
		Idle:     o.KeepAliveInterval,
		Interval: o.KeepAliveInterval,
		Count:    count,
	}
}

// Apply sets the options on c when it is a *net.TCPConn. Other connection
// types are left alone.
func (o Options) Apply(c net.Conn) error {
	tc, ok := c.(*net.TCPConn)
	if !ok {
		return nil
	}

	var errs []error
	if err := tc.SetNoDelay(o.NoDelay); err != nil {
		errs = append(errs, fmt.Errorf("set nodelay: %w", err))
	}
	if err := tc.SetKeepAliveConfig(o.KeepAlive()); err != nil {
		errs = append(errs, fmt.Errorf("set keepalive: %w", err))
	}
	return errors.Join(errs...)
}
