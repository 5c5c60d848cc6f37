package testutil

import (
	"fmt"
	"net"

	"github.com/txthinking/socks5"
)

// SOCKS5ReplyError is a non-success status returned by the server under test.
type SOCKS5ReplyError struct {
	Step string
	Code byte
}

func (e *SOCKS5ReplyError) Error() string {
	return fmt.Sprintf("socks5 %s rejected with %#02x", e.Step, e.Code)
}

// SOCKS5Client runs the client side of a SOCKS5 handshake over a connection
// the test already holds, so the test keeps control of the raw socket. A
// non-empty Username also offers username/password authentication.
type SOCKS5Client struct {
	Username string
	Password string
}

// Dial negotiates and then issues a CONNECT for address.
func (c SOCKS5Client) Dial(conn net.Conn, address string) error {
	if err := c.Negotiate(conn); err != nil {
		return err
	}
	return c.Connect(conn, address)
}

func (c SOCKS5Client) Negotiate(conn net.Conn) error {
	methods := []byte{socks5.MethodNone}
	if c.Username != "" {
		methods = append(methods, socks5.MethodUsernamePassword)
	}
	if _, err := socks5.NewNegotiationRequest(methods).WriteTo(conn); err != nil {
		return fmt.Errorf("write greeting: %w", err)
	}

	neg, err := socks5.NewNegotiationReplyFrom(conn)
	if err != nil {
		return fmt.Errorf("read method: %w", err)
	}
	switch {
	case neg.Method == socks5.MethodNone:
		return nil
	case neg.Method == socks5.MethodUsernamePassword && c.Username != "":
		return c.authenticate(conn)
	default:
		return &SOCKS5ReplyError{Step: "negotiation", Code: neg.Method}
	}
}

func (c SOCKS5Client) authenticate(conn net.Conn) error {
	req := socks5.NewUserPassNegotiationRequest([]byte(c.Username), []byte(c.Password))
	if _, err := req.WriteTo(conn); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}

	rep, err := socks5.NewUserPassNegotiationReplyFrom(conn)
	if err != nil {
		return fmt.Errorf("read auth status: %w", err)
	}
	if rep.Status != socks5.UserPassStatusSuccess {
		return &SOCKS5ReplyError{Step: "auth", Code: rep.Status}
	}
	return nil
}

func (c SOCKS5Client) Connect(conn net.Conn, address string) error {
	atyp, host, port, err := socks5.ParseAddress(address)
	if err != nil {
		return fmt.Errorf("parse %s: %w", address, err)
	}
	if atyp == socks5.ATYPDomain {
		// ParseAddress length-prefixes domains and NewRequest does it again.
		host = host[1:]
	}

	if _, err := socks5.NewRequest(socks5.CmdConnect, atyp, host, port).WriteTo(conn); err != nil {
		return fmt.Errorf("write request: %w", err)
	}

	rep, err := socks5.NewReplyFrom(conn)
	if err != nil {
		return fmt.Errorf("read reply: %w", err)
	}
	if rep.Rep != socks5.RepSuccess {
		return &SOCKS5ReplyError{Step: "connect", Code: rep.Rep}
	}
	return nil
}
