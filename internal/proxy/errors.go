package proxy

import (
	"errors"
	"fmt"
)

var (
	ErrConnect = errors.New("connect failed")
	ErrRelay   = errors.New("relay failed")
)

// Stage is the point in a session at which it failed.
type Stage int

const (
	StageCredentials Stage = iota
	StageGreeting
	StageMethod
	StageAuth
	StageRequest
	StageConnect
	StageRelay
)

func (s Stage) String() string {
	switch s {
	case StageCredentials:
		return "credentials"
	case StageGreeting:
		return "greeting"
	case StageMethod:
		return "method"
	case StageAuth:
		return "auth"
	case StageRequest:
		return "request"
	case StageConnect:
		return "connect"
	case StageRelay:
		return "relay"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// SessionError is the terminal error of a session.
type SessionError struct {
	Stage Stage
	Err   error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }
