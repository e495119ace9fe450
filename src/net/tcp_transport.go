package net

import (
	"errors"
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

var errNotTCP = errors.New("local address is not a TCP address")

// NewTCPTransport returns a Transport that is built on top of a TCP streaming
// transport layer, with log output going to the supplied logger. The timeout
// only applies to dialing; reads and writes never time out. maxLine bounds
// incoming lines, zero meaning DefaultMaxLineSize.
func NewTCPTransport(
	bindAddr string,
	advertise string,
	timeout time.Duration,
	maxLine int,
	logger *logrus.Entry,
) (*Transport, error) {
	return newTCPTransport(bindAddr, advertise, func(stream StreamLayer) *Transport {
		return NewTransport(stream, timeout, maxLine, logger)
	})
}

func newTCPTransport(bindAddr string,
	advertiseAddr string,
	transportCreator func(stream StreamLayer) *Transport) (*Transport, error) {

	// Try to bind
	list, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}

	// Try to resolve the advertise address
	if advertiseAddr != "" {
		if _, err := net.ResolveTCPAddr("tcp", advertiseAddr); err != nil {
			list.Close()
			return nil, err
		}
	}

	tcpList, ok := list.(*net.TCPListener)
	if !ok {
		list.Close()
		return nil, errNotTCP
	}

	// Create stream
	stream := &TCPStreamLayer{
		advertise: advertiseAddr,
		listener:  tcpList,
	}

	// Create the network transport
	trans := transportCreator(stream)
	return trans, nil
}
