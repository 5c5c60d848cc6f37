// Package conn holds TCP socket plumbing shared by the listener and the
// outbound dialer: socket tuning, a tuning listener and a close-once wrapper.
package conn
