// Package socks5 implements the server side of the SOCKS5 wire format used by
// socksgate: the method greeting, the RFC 1929 username/password
// sub-negotiation, the CONNECT request and the replies to each of them.
//
// Replies are framed with the message types from github.com/txthinking/socks5.
// Parsing is done here because every malformed frame has to produce both a
// specific reply and a specific error. Parse functions return a *Failure that
// carries the two together, and callers hand it to Send before tearing the
// session down.
//
// Only CONNECT is supported. The bound address in every reply is 0.0.0.0:0.
package socks5
