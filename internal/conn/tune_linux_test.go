//go:build linux

package conn

import (
	"context"
	"net"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func sockoptInt(t *testing.T, c net.Conn, level, opt int) int {
	t.Helper()

	rc, err := c.(*net.TCPConn).SyscallConn()
	if err != nil {
		t.Fatal(err)
	}

	var (
		v    int
		gerr error
	)
	if err := rc.Control(func(fd uintptr) {
		v, gerr = unix.GetsockoptInt(int(fd), level, opt)
	}); err != nil {
		t.Fatal(err)
	}
	if gerr != nil {
		t.Fatal(gerr)
	}
	return v
}

func TestApplySetsSocketOptions(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	go func() {
		c, err := ln.Accept()
		if err == nil {
			<-ctx.Done()
			_ = c.Close()
		}
	}()

	d := net.Dialer{KeepAlive: -1}
	c, err := d.DialContext(ctx, "tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	opts := Options{NoDelay: true, KeepAliveInterval: 7 * time.Second, KeepAliveCount: 3}
	if err := opts.Apply(c); err != nil {
		t.Fatal(err)
	}

	checks := []struct {
		name       string
		level, opt int
		want       int
	}{
		{"TCP_NODELAY", unix.IPPROTO_TCP, unix.TCP_NODELAY, 1},
		{"SO_KEEPALIVE", unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1},
		{"TCP_KEEPIDLE", unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, 7},
		{"TCP_KEEPINTVL", unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, 7},
		{"TCP_KEEPCNT", unix.IPPROTO_TCP, unix.TCP_KEEPCNT, 3},
	}
	for _, ck := range checks {
		if got := sockoptInt(t, c, ck.level, ck.opt); got != ck.want {
			t.Errorf("%s: expected %d got %d", ck.name, ck.want, got)
		}
	}

	if err := (Options{NoDelay: true}).Apply(c); err != nil {
		t.Fatal(err)
	}
	if got := sockoptInt(t, c, unix.SOL_SOCKET, unix.SO_KEEPALIVE); got != 0 {
		t.Errorf("SO_KEEPALIVE: expected keep-alive disabled, got %d", got)
	}
}
