// Package proxy implements the SOCKS5 server: the per-connection handshake,
// the optional destination sniffing and the bidirectional relay.
package proxy
