package net

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrTransportShutdown is returned when operations on a transport are
	// invoked after it's been terminated.
	ErrTransportShutdown = errors.New("transport shutdown")
)

/*
Transport accepts and dials line-oriented peer connections over a StreamLayer,
which can be simple TCP or anything else providing a net.Listener and a
dialer.

Messages are lines of text terminated by '\n'. The transport knows nothing
about their meaning; it hands every connection, inbound or outbound, to the
caller as a *Conn.
*/
type Transport struct {
	logger *logrus.Entry

	stream StreamLayer

	shutdown     bool
	shutdownCh   chan struct{}
	shutdownLock sync.Mutex

	timeout time.Duration
	maxLine int
}

// NewTransport creates a new transport with the given stream layer. The
// timeout is applied when dialing; zero means no timeout. maxLine bounds the
// lines read from every connection; zero means DefaultMaxLineSize.
func NewTransport(
	stream StreamLayer,
	timeout time.Duration,
	maxLine int,
	logger *logrus.Entry,
) *Transport {

	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	return &Transport{
		logger:     logger,
		stream:     stream,
		shutdownCh: make(chan struct{}),
		timeout:    timeout,
		maxLine:    maxLine,
	}
}

// Close is used to stop the transport. Connections already handed out are
// not closed.
func (n *Transport) Close() error {
	n.shutdownLock.Lock()
	defer n.shutdownLock.Unlock()

	if !n.shutdown {
		close(n.shutdownCh)
		n.stream.Close()

		n.shutdown = true
	}
	return nil
}

// LocalAddr returns the address the transport is bound to.
func (n *Transport) LocalAddr() string {
	addr := n.stream.Addr()

	if addr != nil {
		return addr.String()
	}

	return ""
}

// AdvertiseAddr returns the address other nodes should use to reach us.
func (n *Transport) AdvertiseAddr() string {
	return n.stream.AdvertiseAddr()
}

// IsShutdown is used to check if the transport is shutdown.
func (n *Transport) IsShutdown() bool {
	select {
	case <-n.shutdownCh:
		return true
	default:
		return false
	}
}

// Dial opens a connection to target.
func (n *Transport) Dial(target string) (*Conn, error) {
	if n.IsShutdown() {
		return nil, ErrTransportShutdown
	}

	conn, err := n.stream.Dial(target, n.timeout)
	if err != nil {
		return nil, err
	}

	n.logger.WithFields(logrus.Fields{
		"node": conn.LocalAddr(),
		"to":   conn.RemoteAddr(),
	}).Debug("dialed connection")

	return NewConn(conn, n.maxLine), nil
}

// Listen accepts incoming connections and passes each of them to handler,
// until the transport is closed or accepting fails. It returns nil after
// Close, and the accept error otherwise. Failures are not retried.
func (n *Transport) Listen(handler func(*Conn)) error {
	for {
		// Accept incoming connections
		conn, err := n.stream.Accept()
		if err != nil {
			if n.IsShutdown() {
				return nil
			}
			n.logger.WithField("error", err).Error("Failed to accept connection")
			return err
		}

		n.logger.WithFields(logrus.Fields{
			"node": conn.LocalAddr(),
			"from": conn.RemoteAddr(),
		}).Debug("accepted connection")

		handler(NewConn(conn, n.maxLine))
	}
}
