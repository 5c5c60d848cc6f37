package socks5

import (
	"bytes"
	"encoding/binary"
	"io"
	"net"
	"net/netip"
	"strconv"
	"unicode/utf8"
)

// Greeting is the client's method selection message.
type Greeting struct {
	Methods []byte
}

// Offers reports whether the client listed method.
func (g Greeting) Offers(method byte) bool {
	return bytes.IndexByte(g.Methods, method) >= 0
}

// UserPass is an RFC 1929 username/password request.
type UserPass struct {
	Username string
	Password string
}

// Addr is a CONNECT destination: an IPv4 or IPv6 address or a domain name,
// plus a port.
type Addr struct {
	Type   byte
	IP     netip.Addr
	Domain string
	Port   uint16
}

// Host returns the destination host in a form net.Dial accepts.
func (a Addr) Host() string {
	if a.Type == AtypDomain {
		return a.Domain
	}
	return a.IP.String()
}

func (a Addr) String() string {
	return net.JoinHostPort(a.Host(), strconv.Itoa(int(a.Port)))
}

// Request is a parsed CONNECT request.
type Request struct {
	Cmd byte
	Dst Addr
}

// ReadGreeting reads VER NMETHODS METHODS.
func ReadGreeting(r io.Reader) (Greeting, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Greeting{}, failf(nil, ErrShortFrame, "greeting: %w", err)
	}

	noAcceptable := MethodReply(MethodNoAcceptable)
	if hdr[0] != Version {
		return Greeting{}, failf(noAcceptable, ErrVersion, "greeting version %#02x", hdr[0])
	}

	methods := make([]byte, int(hdr[1]))
	if _, err := io.ReadFull(r, methods); err != nil {
		return Greeting{}, failf(noAcceptable, ErrShortFrame, "greeting methods: %w", err)
	}

	return Greeting{Methods: methods}, nil
}

// ReadUserPass reads VER ULEN UNAME PLEN PASSWD.
func ReadUserPass(r io.Reader) (UserPass, error) {
	reject := AuthReply(false)

	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return UserPass{}, failf(reject, ErrShortFrame, "auth header: %w", err)
	}
	if hdr[0] != authVersion {
		return UserPass{}, failf(reject, ErrVersion, "auth version %#02x", hdr[0])
	}

	uname := make([]byte, int(hdr[1]))
	if _, err := io.ReadFull(r, uname); err != nil {
		return UserPass{}, failf(reject, ErrShortFrame, "auth username: %w", err)
	}

	var plen [1]byte
	if _, err := io.ReadFull(r, plen[:]); err != nil {
		return UserPass{}, failf(reject, ErrShortFrame, "auth password length: %w", err)
	}
	passwd := make([]byte, int(plen[0]))
	if _, err := io.ReadFull(r, passwd); err != nil {
		return UserPass{}, failf(reject, ErrShortFrame, "auth password: %w", err)
	}

	if !utf8.Valid(uname) {
		return UserPass{}, failf(reject, ErrMalformed, "username is not valid UTF-8")
	}
	if !utf8.Valid(passwd) {
		return UserPass{}, failf(reject, ErrMalformed, "password is not valid UTF-8")
	}

	return UserPass{Username: string(uname), Password: string(passwd)}, nil
}

// ReadRequest reads VER CMD RSV ATYP DST.ADDR DST.PORT. CMD is checked before
// the address is read, so an unsupported command never consumes DST.ADDR.
func ReadRequest(r io.Reader) (Request, error) {
	general := Reply(ReplyGeneralFailure)

	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Request{}, failf(general, ErrShortFrame, "request header: %w", err)
	}
	if hdr[0] != Version {
		return Request{}, failf(general, ErrVersion, "request version %#02x", hdr[0])
	}
	if hdr[1] != CmdConnect {
		return Request{}, failf(Reply(ReplyCommandNotSupported), ErrCommandNotSupported, "command %#02x", hdr[1])
	}

	dst, err := readAddr(r, hdr[3])
	if err != nil {
		return Request{}, err
	}

	return Request{Cmd: hdr[1], Dst: dst}, nil
}

func readAddr(r io.Reader, atyp byte) (Addr, error) {
	general := Reply(ReplyGeneralFailure)
	a := Addr{Type: atyp}

	switch atyp {
	case AtypIPv4:
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return Addr{}, failf(general, ErrShortFrame, "ipv4 address: %w", err)
		}
		a.IP = netip.AddrFrom4(b)
	case AtypIPv6:
		var b [16]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return Addr{}, failf(general, ErrShortFrame, "ipv6 address: %w", err)
		}
		a.IP = netip.AddrFrom16(b)
	case AtypDomain:
		var n [1]byte
		if _, err := io.ReadFull(r, n[:]); err != nil {
			return Addr{}, failf(general, ErrShortFrame, "domain length: %w", err)
		}
		b := make([]byte, int(n[0]))
		if _, err := io.ReadFull(r, b); err != nil {
			return Addr{}, failf(general, ErrShortFrame, "domain: %w", err)
		}
		if !utf8.Valid(b) {
			return Addr{}, failf(general, ErrMalformed, "domain is not valid UTF-8")
		}
		a.Domain = string(b)
	default:
		return Addr{}, failf(Reply(ReplyAddressNotSupported), ErrAddressNotSupported, "address type %#02x", atyp)
	}

	var port [2]byte
	if _, err := io.ReadFull(r, port[:]); err != nil {
		return Addr{}, failf(general, ErrShortFrame, "port: %w", err)
	}
	a.Port = binary.BigEndian.Uint16(port[:])

	return a, nil
}
