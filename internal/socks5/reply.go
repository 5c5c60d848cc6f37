package socks5

import (
	"fmt"
	"io"

	txsocks5 "github.com/txthinking/socks5"
)

const (
	// Version is the SOCKS protocol version carried by every SOCKS5 frame.
	Version byte = 0x05

	// authVersion is the RFC 1929 sub-negotiation version.
	authVersion byte = 0x01
)

// Authentication methods.
const (
	MethodNoAuth       byte = 0x00
	MethodUserPass     byte = 0x02
	MethodNoAcceptable byte = 0xff
)

// CmdConnect is the SOCKS5 CONNECT command value.
const CmdConnect byte = 0x01

// Address types.
const (
	AtypIPv4   byte = 0x01
	AtypDomain byte = 0x03
	AtypIPv6   byte = 0x04
)

// RFC 1929 status values. Any non-zero status is a failure; 0xff is what
// this server sends.
const (
	authStatusSuccess byte = 0x00
	authStatusFailure byte = 0xff
)

// ReplyCode is the REP field of a CONNECT reply.
type ReplyCode byte

const (
	ReplySucceeded           ReplyCode = 0x00
	ReplyGeneralFailure      ReplyCode = 0x01
	ReplyCommandNotSupported ReplyCode = 0x07
	ReplyAddressNotSupported ReplyCode = 0x08
)

func (c ReplyCode) String() string {
	switch c {
	case ReplySucceeded:
		return "succeeded"
	case ReplyGeneralFailure:
		return "general failure"
	case ReplyCommandNotSupported:
		return "command not supported"
	case ReplyAddressNotSupported:
		return "address type not supported"
	default:
		return fmt.Sprintf("reply %#02x", byte(c))
	}
}

var (
	zeroAddr = []byte{0x00, 0x00, 0x00, 0x00}
	zeroPort = []byte{0x00, 0x00}
)

// Reply returns the CONNECT reply frame for code. The bound address is
// always 0.0.0.0:0.
func Reply(code ReplyCode) io.WriterTo {
	return txsocks5.NewReply(byte(code), AtypIPv4, zeroAddr, zeroPort)
}

// MethodReply returns the method selection frame (VER METHOD).
func MethodReply(method byte) io.WriterTo {
	return txsocks5.NewNegotiationReply(method)
}

// AuthReply returns the username/password status frame.
func AuthReply(ok bool) io.WriterTo {
	if ok {
		return txsocks5.NewUserPassNegotiationReply(authStatusSuccess)
	}
	return txsocks5.NewUserPassNegotiationReply(authStatusFailure)
}

// WriteReply writes a CONNECT reply with the given code.
func WriteReply(w io.Writer, code ReplyCode) error {
	if _, err := Reply(code).WriteTo(w); err != nil {
		return fmt.Errorf("write %s reply: %w", code, err)
	}
	return nil
}

// WriteMethod writes the selected authentication method.
func WriteMethod(w io.Writer, method byte) error {
	if _, err := MethodReply(method).WriteTo(w); err != nil {
		return fmt.Errorf("write method reply: %w", err)
	}
	return nil
}

// WriteAuthStatus writes the RFC 1929 status reply.
func WriteAuthStatus(w io.Writer, ok bool) error {
	if _, err := AuthReply(ok).WriteTo(w); err != nil {
		return fmt.Errorf("write auth reply: %w", err)
	}
	return nil
}
