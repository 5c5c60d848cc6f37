// Package dialer opens the outbound side of a proxied session.
//
// Connections are always made directly to the destination. Domain names go
// through the system resolver, or through a DNS server queried with
// github.com/miekg/dns when one is configured.
package dialer
