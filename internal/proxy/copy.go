package proxy

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"
)

// errDrained marks a direction that reached EOF. It ends the relay like an
// error would but is not reported.
var errDrained = errors.New("relay direction drained")

// RelayStats counts the bytes moved in each direction.
type RelayStats struct {
	// Upstream is client to destination.
	Upstream int64
	// Downstream is destination to client.
	Downstream int64
}

// Relay copies between client and up until either direction reaches EOF or
// fails, then closes both. The other direction is abandoned, not drained.
// clientReader, if not nil, is read in place of client so that bytes already
// buffered during the handshake are forwarded first. The returned error is the
// first failure observed; EOF is not a failure.
func Relay(ctx context.Context, client net.Conn, clientReader io.Reader, up net.Conn) (RelayStats, error) {
	if clientReader == nil {
		clientReader = client
	}

	g, gctx := errgroup.WithContext(ctx)

	var closeOnce sync.Once
	closeBoth := func() {
		closeOnce.Do(func() {
			_ = client.Close()
			_ = up.Close()
		})
	}
	defer closeBoth()

	// The first direction to return cancels gctx, which unblocks the other.
	stop := context.AfterFunc(gctx, closeBoth)
	defer stop()

	var stats RelayStats
	g.Go(func() error {
		n, err := copyBuffer(up, clientReader)
		stats.Upstream = n
		return drained(err)
	})
	g.Go(func() error {
		n, err := copyBuffer(client, up)
		stats.Downstream = n
		return drained(err)
	})

	err := g.Wait()
	if ctx.Err() != nil {
		return stats, ctx.Err()
	}
	if errors.Is(err, errDrained) {
		return stats, nil
	}
	return stats, err
}

func drained(err error) error {
	if err == nil {
		return errDrained
	}
	return err
}
