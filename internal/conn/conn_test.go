package conn

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"
)

func TestOptionsKeepAlive(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want net.KeepAliveConfig
	}{
		{name: "disabled", opts: Options{KeepAliveCount: 5}, want: net.KeepAliveConfig{}},
		{
			name: "interval_only",
			opts: Options{KeepAliveInterval: 30 * time.Second},
			want: net.KeepAliveConfig{Enable: true, Idle: 30 * time.Second, Interval: 30 * time.Second, Count: -1},
		},
		{
			name: "interval_and_count",
			opts: Options{KeepAliveInterval: 10 * time.Second, KeepAliveCount: 4},
			want: net.KeepAliveConfig{Enable: true, Idle: 10 * time.Second, Interval: 10 * time.Second, Count: 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.opts.KeepAlive(); got != tt.want {
				t.Fatalf("expected %+v got %+v", tt.want, got)
			}
		})
	}
}

func TestApplyIgnoresNonTCP(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	if err := (Options{NoDelay: true, KeepAliveInterval: time.Second}).Apply(a); err != nil {
		t.Fatal(err)
	}
}

func TestListenTCPAccepts(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ln, err := ListenTCP(ctx, "tcp", "127.0.0.1:0", Options{NoDelay: true, KeepAliveInterval: 15 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- c
	}()

	d := net.Dialer{}
	c, err := d.DialContext(ctx, "tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	sc, ok := <-accepted
	if !ok {
		t.Fatal("accept failed")
	}
	defer sc.Close()

	if _, ok := sc.(*net.TCPConn); !ok {
		t.Fatalf("expected *net.TCPConn, got %T", sc)
	}
}

type countingConn struct {
	net.Conn
	closes atomic.Int32
}

func (c *countingConn) Close() error {
	c.closes.Add(1)
	return errors.New("closed")
}

func TestOnceCloser(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()

	cc := &countingConn{Conn: a}
	oc := CloseOnce(cc)
	if CloseOnce(oc) != oc {
		t.Fatal("expected CloseOnce to be idempotent")
	}

	first := oc.Close()
	second := oc.Close()
	if first == nil || first != second {
		t.Fatalf("expected the first result to be repeated, got %v then %v", first, second)
	}
	if n := cc.closes.Load(); n != 1 {
		t.Fatalf("expected one close, got %d", n)
	}
}
