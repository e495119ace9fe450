package node

import (
	"errors"

	"github.com/mosaicnetworks/gossipchain/src/chain"
	"github.com/mosaicnetworks/gossipchain/src/net"
)

// ask requests the chain of a freshly connected peer, starts reading from it
// and merges the answer.
func (n *Node[T]) ask(conn *net.Conn) error {
	logger := n.logger.WithField("peer", conn.RemoteAddr())

	if err := conn.WriteLine(net.RequestChain); err != nil {
		n.dropPeer(conn)
		return newErr(ConnectionError, "ask", err)
	}

	logger.Debug("Asked for chain")

	line, err := conn.ReadLine()
	if err != nil {
		n.dropPeer(conn)
		if errors.Is(err, net.ErrLineTooLong) {
			return newErr(DecodeError, "ask", err)
		}
		return newErr(ConnectionError, "ask", err)
	}

	if line == net.RequestChain {
		n.dropPeer(conn)
		return newErr(ProtocolViolation, "ask", errors.New("peer answered a chain request with a chain request"))
	}

	n.state.GoFunc(func() { n.readLoop(conn) })

	tip, err := n.decode(line)
	if err != nil {
		return err
	}

	return n.receive(tip)
}

// readLoop processes the messages of one peer until the connection closes.
// The connection is closed on return, so that the next send drops it.
func (n *Node[T]) readLoop(conn *net.Conn) {
	logger := n.logger.WithField("peer", conn.RemoteAddr())

	defer conn.Close()

	for {
		line, err := conn.ReadLine()
		if err != nil {
			if net.IsClosedErr(err) {
				logger.Debug("Peer disconnected")
			} else if errors.Is(err, net.ErrLineTooLong) {
				logger.WithError(newErr(DecodeError, "read", err)).Error("Reading from peer")
			} else {
				logger.WithError(err).Error("Reading from peer")
			}
			return
		}

		if line == net.RequestChain {
			logger.Debug("Chain requested")
			if err := n.sendChain(conn, n.GetChain()); err != nil {
				if !net.IsClosedErr(err) {
					logger.WithError(err).Error("Answering chain request")
				}
				return
			}
			continue
		}

		tip, err := n.decode(line)
		if err != nil {
			logger.WithError(err).Error("Decoding chain from peer")
			return
		}

		// Failures here concern other peers; this one stays up.
		if err := n.receive(tip); err != nil {
			logger.WithError(err).Warn("Propagating chain")
		}
	}
}

// receive replaces the current chain with tip if tip is better, and sends the
// new chain to every peer. Nothing is sent when the chain does not change.
func (n *Node[T]) receive(tip *chain.Block[T]) error {
	n.chainLock.Lock()
	current := n.current.Load()
	merged := chain.Merge(current, tip)
	if merged == current {
		n.chainLock.Unlock()
		n.logger.WithField("chain_length", tip.Len()).Debug("Kept current chain")
		return nil
	}
	n.current.Store(merged)
	n.chainLock.Unlock()

	n.logger.WithField("chain_length", merged.Len()).Info("Adopted chain")

	return n.emit(merged)
}

// emit sends tip to every registered peer. All peers are tried; the failures
// are joined.
func (n *Node[T]) emit(tip *chain.Block[T]) error {
	line, err := n.encode(tip)
	if err != nil {
		return err
	}

	var errs []error
	for _, conn := range n.peers.Copy() {
		if err := n.send(conn, line); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return newErr(ConnectionError, "emit", errors.Join(errs...))
	}

	return nil
}

func (n *Node[T]) sendChain(conn *net.Conn, tip *chain.Block[T]) error {
	line, err := n.encode(tip)
	if err != nil {
		return err
	}
	return n.send(conn, line)
}

// send writes an encoded chain to conn. A closed connection is removed from
// the peer set instead; this is the only place dead peers are cleaned up.
func (n *Node[T]) send(conn *net.Conn, line string) error {
	if conn.IsClosed() {
		n.peers.Remove(conn)
		n.logger.WithField("peer", conn.RemoteAddr()).Debug("Dropped closed peer")
		return nil
	}

	if err := conn.WriteLine(line); err != nil {
		if net.IsClosedErr(err) {
			// Closed under our feet; it will be dropped on the next send.
			conn.Close()
			return nil
		}
		conn.Close()
		return err
	}

	return nil
}

func (n *Node[T]) dropPeer(conn *net.Conn) {
	conn.Close()
	n.peers.Remove(conn)
}

func (n *Node[T]) encode(tip *chain.Block[T]) (string, error) {
	data, err := chain.Marshal(tip)
	if err != nil {
		return "", newErr(DecodeError, "encode", err)
	}
	return net.EncodeFrame(data), nil
}

func (n *Node[T]) decode(line string) (*chain.Block[T], error) {
	data, err := net.DecodeFrame(line)
	if err != nil {
		return nil, newErr(DecodeError, "decode", err)
	}

	tip, err := chain.Unmarshal[T](data)
	if err != nil {
		return nil, newErr(DecodeError, "decode", err)
	}

	return tip, nil
}
