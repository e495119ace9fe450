package net

import (
	"net"
	"time"
)

// keepAlivePeriod is the TCP keep-alive period of every peer connection. Peer
// connections carry no traffic between chain updates, so keep-alives are what
// eventually surfaces a vanished peer to its reader.
const keepAlivePeriod = 30 * time.Second

// TCPStreamLayer implements StreamLayer for plain TCP.
type TCPStreamLayer struct {
	advertise string
	listener  *net.TCPListener
}

// Dial opens a TCP connection to address with keep-alives enabled.
func (t *TCPStreamLayer) Dial(address string, timeout time.Duration) (net.Conn, error) {
	dialer := net.Dialer{
		Timeout:   timeout,
		KeepAlive: keepAlivePeriod,
	}
	return dialer.Dial("tcp", address)
}

// Accept waits for the next inbound connection and enables keep-alives on it.
func (t *TCPStreamLayer) Accept() (net.Conn, error) {
	conn, err := t.listener.AcceptTCP()
	if err != nil {
		return nil, err
	}
	conn.SetKeepAlive(true)
	conn.SetKeepAlivePeriod(keepAlivePeriod)
	return conn, nil
}

// Close stops the listener. Connections already accepted stay open.
func (t *TCPStreamLayer) Close() error {
	return t.listener.Close()
}

// Addr returns the bound address.
func (t *TCPStreamLayer) Addr() net.Addr {
	return t.listener.Addr()
}

// AdvertiseAddr returns the advertise address when one was configured, the
// bound address otherwise.
func (t *TCPStreamLayer) AdvertiseAddr() string {
	if t.advertise != "" {
		return t.advertise
	}
	return t.listener.Addr().String()
}
