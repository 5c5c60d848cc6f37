package socks5

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrProtocol classifies malformed or unsupported frames.
	ErrProtocol = errors.New("socks5 protocol error")

	ErrShortFrame          = fmt.Errorf("%w: short frame", ErrProtocol)
	ErrVersion             = fmt.Errorf("%w: unsupported version", ErrProtocol)
	ErrMalformed           = fmt.Errorf("%w: malformed field", ErrProtocol)
	ErrCommandNotSupported = fmt.Errorf("%w: command not supported", ErrProtocol)
	ErrAddressNotSupported = fmt.Errorf("%w: address type not supported", ErrProtocol)

	// ErrAuth classifies rejected credentials and failed method selection.
	ErrAuth = errors.New("socks5 authentication failed")
)

// Failure is a handshake error together with the reply owed to the client.
// Reply is nil when nothing can be framed, e.g. the greeting never arrived.
type Failure struct {
	Reply io.WriterTo
	Err   error
}

func (f *Failure) Error() string { return f.Err.Error() }

func (f *Failure) Unwrap() error { return f.Err }

// Send writes the reply to w, ignoring write errors, and returns f.
func (f *Failure) Send(w io.Writer) error {
	if f.Reply != nil {
		_, _ = f.Reply.WriteTo(w)
	}
	return f
}

// Send writes the reply carried by err, if err is a *Failure, and returns err
// unchanged.
func Send(w io.Writer, err error) error {
	var f *Failure
	if errors.As(err, &f) {
		_ = f.Send(w)
	}
	return err
}

// NewFailure pairs err with the reply owed to the client.
func NewFailure(reply io.WriterTo, err error) *Failure {
	return &Failure{Reply: reply, Err: err}
}

func failf(reply io.WriterTo, kind error, format string, args ...any) *Failure {
	return NewFailure(reply, fmt.Errorf("%w: "+format, append([]any{kind}, args...)...))
}

// Reject builds the failure for a refused method selection or bad
// credentials. reply is the frame that tells the client so.
func Reject(reply io.WriterTo, format string, args ...any) error {
	return failf(reply, ErrAuth, format, args...)
}
