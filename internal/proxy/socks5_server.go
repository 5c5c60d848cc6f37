package proxy

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/die-net/socksgate/internal/conn"
	"github.com/die-net/socksgate/internal/credentials"
	"github.com/die-net/socksgate/internal/socks5"
)

type noCredentials struct{}

func (noCredentials) Load() (credentials.Users, error) { return credentials.Users{}, nil }

type SOCKS5Server struct {
	ctx context.Context
	cfg Config
	log log.FieldLogger
}

func NewSOCKS5Server(ctx context.Context, cfg Config, logger log.FieldLogger) *SOCKS5Server {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	if cfg.Credentials == nil {
		cfg.Credentials = noCredentials{}
	}
	return &SOCKS5Server{ctx: ctx, cfg: cfg, log: logger}
}

// Serve accepts connections on ln and runs one session per connection until
// ln is closed. It returns nil if the server's context is done by then.
func (s *SOCKS5Server) Serve(ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go s.handleConn(c)
	}
}

func (s *SOCKS5Server) handleConn(c net.Conn) {
	logger := s.log.WithField("client", c.RemoteAddr().String())
	logger.Info("connection accepted")

	s.cfg.Metrics.SessionStarted()
	defer s.cfg.Metrics.SessionEnded()

	err := s.ServeConn(c)

	var se *SessionError
	switch {
	case err == nil:
		logger.Info("connection closed")
	case errors.As(err, &se) && se.Stage == StageRelay:
		s.cfg.Metrics.Failed(se.Stage.String())
		logger.WithField("stage", se.Stage).Debugf("connection closed: %v", se.Err)
	case errors.As(err, &se):
		s.cfg.Metrics.Failed(se.Stage.String())
		logger.WithField("stage", se.Stage).Warnf("session failed: %v", se.Err)
	default:
		logger.Warnf("session failed: %v", err)
	}
}

// ServeConn runs a single session on c and closes it. A non-nil error is a
// *SessionError naming the stage that failed.
func (s *SOCKS5Server) ServeConn(c net.Conn) error {
	client := conn.CloseOnce(c)
	defer client.Close()

	sess := &session{
		cfg:    s.cfg,
		client: client,
		br:     bufio.NewReader(client),
		log:    s.log.WithField("client", c.RemoteAddr().String()),
	}
	return sess.run(s.ctx)
}

// session is the state of one client connection. It is owned by the
// goroutine running it.
type session struct {
	cfg    Config
	client net.Conn
	br     *bufio.Reader
	log    log.FieldLogger
}

func (s *session) run(ctx context.Context) error {
	users, err := s.cfg.Credentials.Load()
	if err != nil {
		return &SessionError{Stage: StageCredentials, Err: err}
	}

	if t := s.cfg.NegotiationTimeout; t > 0 {
		_ = s.client.SetDeadline(time.Now().Add(t))
	}

	greeting, err := socks5.ReadGreeting(s.br)
	if err != nil {
		return s.fail(StageGreeting, err)
	}

	method, err := selectMethod(greeting, users)
	if err != nil {
		return s.fail(StageMethod, err)
	}
	if err := socks5.WriteMethod(s.client, method); err != nil {
		return s.fail(StageMethod, err)
	}

	if method == socks5.MethodUserPass {
		if err := s.authenticate(users); err != nil {
			return s.fail(StageAuth, err)
		}
	}

	req, err := socks5.ReadRequest(s.br)
	if err != nil {
		return s.fail(StageRequest, err)
	}
	s.log = s.log.WithField("dst", req.Dst.String())

	_ = s.client.SetDeadline(time.Time{})

	if s.cfg.Sniffer != nil {
		return s.sniffAndRelay(ctx, req.Dst.String())
	}

	up, err := s.dial(ctx, req.Dst.String())
	if err != nil {
		return s.fail(StageConnect, socks5.NewFailure(socks5.Reply(socks5.ReplyGeneralFailure), err))
	}
	if err := socks5.WriteReply(s.client, socks5.ReplySucceeded); err != nil {
		_ = up.Close()
		return s.fail(StageRelay, err)
	}

	return s.relay(ctx, up)
}

// sniffAndRelay answers the request before connecting, since clients hold
// their first bytes until the reply arrives. A failed connect is then
// reported by closing the connection. The early reply stands in for the
// connect reply, so failing to send it is a connect failure.
func (s *session) sniffAndRelay(ctx context.Context, target string) error {
	if err := socks5.WriteReply(s.client, socks5.ReplySucceeded); err != nil {
		return s.fail(StageConnect, err)
	}

	if dst, ok := s.cfg.Sniffer.Destination(s.client, s.br, target); ok {
		s.log.Infof("signature matched, redirecting to %s", dst)
		s.cfg.Metrics.Redirected()
		target = dst
	}

	up, err := s.dial(ctx, target)
	if err != nil {
		return s.fail(StageConnect, err)
	}

	return s.relay(ctx, up)
}

func selectMethod(g socks5.Greeting, users credentials.Users) (byte, error) {
	switch {
	case g.Offers(socks5.MethodUserPass):
		return socks5.MethodUserPass, nil
	case g.Offers(socks5.MethodNoAuth) && len(users) == 0:
		return socks5.MethodNoAuth, nil
	default:
		return 0, socks5.Reject(socks5.MethodReply(socks5.MethodNoAcceptable), "no acceptable method in % x", g.Methods)
	}
}

func (s *session) authenticate(users credentials.Users) error {
	up, err := socks5.ReadUserPass(s.br)
	if err != nil {
		return err
	}

	if !users.Verify(up.Username, up.Password) {
		return socks5.Reject(socks5.AuthReply(false), "invalid credentials for user %q", up.Username)
	}
	if err := socks5.WriteAuthStatus(s.client, true); err != nil {
		return err
	}

	s.log = s.log.WithField("user", up.Username)
	s.log.Debug("authenticated")
	return nil
}

func (s *session) dial(ctx context.Context, target string) (net.Conn, error) {
	s.log.Debugf("connecting to %s", target)

	up, err := s.cfg.Dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	return conn.CloseOnce(up), nil
}

func (s *session) relay(ctx context.Context, up net.Conn) error {
	stats, err := Relay(ctx, s.client, s.br, up)
	s.cfg.Metrics.Relayed(stats.Upstream, stats.Downstream)
	s.log.WithFields(log.Fields{
		"upstream_bytes":   stats.Upstream,
		"downstream_bytes": stats.Downstream,
	}).Debug("relay finished")

	if err != nil {
		return &SessionError{Stage: StageRelay, Err: fmt.Errorf("%w: %w", ErrRelay, err)}
	}
	return nil
}

// fail sends the reply err carries, if any, and wraps err for stage.
func (s *session) fail(stage Stage, err error) error {
	return &SessionError{Stage: stage, Err: socks5.Send(s.client, err)}
}
