package conn

import (
	"net"
	"sync"
)

// OnceCloser is a net.Conn whose Close runs at most once. Later calls return
// the first result.
type OnceCloser struct {
	net.Conn

	once sync.Once
	err  error
}

func CloseOnce(c net.Conn) *OnceCloser {
	if oc, ok := c.(*OnceCloser); ok {
		return oc
	}
	return &OnceCloser{Conn: c}
}

func (c *OnceCloser) Close() error {
	c.once.Do(func() {
		c.err = c.Conn.Close()
	})
	return c.err
}
