// Package credentials loads the username/password pairs that gate the
// SOCKS5 username/password method.
//
// The backing file holds one "username:password" pair per line, split on the
// first colon. Lines without a colon are ignored and nothing is trimmed. The
// file is read again for every session, so edits take effect on the next
// connection without a restart.
package credentials
