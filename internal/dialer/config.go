package dialer

import (
	"time"

	"github.com/die-net/socksgate/internal/conn"
)

type Config struct {
	DialTimeout time.Duration
	Socket      conn.Options

	// DNSServer, when set, resolves domain destinations instead of the
	// system resolver. A missing port defaults to 53.
	DNSServer string
}
