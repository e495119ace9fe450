package node

import (
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/mosaicnetworks/gossipchain/src/chain"
	"github.com/mosaicnetworks/gossipchain/src/config"
	"github.com/mosaicnetworks/gossipchain/src/net"
	"github.com/mosaicnetworks/gossipchain/src/node/state"
	"github.com/sirupsen/logrus"
)

// Node holds a chain of T and keeps it in sync with its peers.
type Node[T comparable] struct {
	state state.Manager

	conf   *config.Config
	logger *logrus.Entry

	trans *net.Transport
	peers *PeerSet

	// current is read without locking; chainLock serializes every
	// read-merge-store so that concurrent receives and AddBlock calls never
	// overwrite each other.
	current   atomic.Pointer[chain.Block[T]]
	chainLock sync.Mutex

	closeOnce sync.Once
}

// NewNode starts a node listening on conf.BindAddr with genesis as its
// initial chain. genesis may be nil. No peer is contacted. T must pass
// chain.CheckPayloadType.
func NewNode[T comparable](conf *config.Config, genesis *chain.Block[T]) (*Node[T], error) {
	if err := chain.CheckPayloadType[T](); err != nil {
		return nil, newErr(DecodeError, "payload", err)
	}

	trans, err := net.NewTCPTransport(
		conf.BindAddr,
		conf.AdvertiseAddr,
		conf.DialTimeout,
		conf.MaxLineSize,
		conf.Logger().WithField("component", "transport"),
	)
	if err != nil {
		return nil, newErr(ConnectionError, "listen", err)
	}

	node := &Node[T]{
		conf:   conf,
		logger: conf.Logger().WithField("node", trans.LocalAddr()),
		trans:  trans,
		peers:  NewPeerSet(),
	}

	node.current.Store(genesis)

	node.logger.WithFields(logrus.Fields{
		"advertise":    trans.AdvertiseAddr(),
		"chain_length": genesis.Len(),
	}).Info("Node started")

	node.state.GoFunc(node.listen)

	return node, nil
}

// JoinNode starts a node listening on conf.BindAddr, connects to remoteAddr
// and adopts the chain it serves. The node is closed if the exchange fails.
func JoinNode[T comparable](conf *config.Config, remoteAddr string) (*Node[T], error) {
	node, err := NewNode[T](conf, nil)
	if err != nil {
		return nil, err
	}

	if err := node.AddNode(remoteAddr); err != nil {
		node.Close()
		return nil, err
	}

	return node, nil
}

// AddNode connects to remoteAddr, registers the connection as a peer and
// pulls the peer's chain.
func (n *Node[T]) AddNode(remoteAddr string) error {
	conn, err := n.trans.Dial(remoteAddr)
	if err != nil {
		return newErr(ConnectionError, "dial", err)
	}

	if !n.peers.Add(conn) {
		conn.Close()
		return newErr(ConnectionError, "dial", net.ErrTransportShutdown)
	}

	n.logger.WithField("peer", conn.RemoteAddr()).Debug("Connected to peer")

	return n.ask(conn)
}

// AddBlock appends payload to the current chain and sends the new chain to
// every peer. It returns the appended block, which is kept even if sending
// fails; by the time it returns, the current chain may already have moved on.
func (n *Node[T]) AddBlock(payload T) (*chain.Block[T], error) {
	n.chainLock.Lock()
	tip := chain.Append(n.current.Load(), payload)
	n.current.Store(tip)
	n.chainLock.Unlock()

	n.logger.WithFields(logrus.Fields{
		"index":       tip.Index(),
		"fingerprint": tip.Fingerprint(),
	}).Debug("Added block")

	return tip, n.emit(tip)
}

// GetChain returns the current chain. It never blocks.
func (n *Node[T]) GetChain() *chain.Block[T] {
	return n.current.Load()
}

// LocalAddr returns the address the node listens on.
func (n *Node[T]) LocalAddr() string {
	return n.trans.LocalAddr()
}

// Peers returns the remote addresses of the connections that are still open.
func (n *Node[T]) Peers() []string {
	res := []string{}
	for _, conn := range n.peers.Copy() {
		if !conn.IsClosed() {
			res = append(res, conn.RemoteAddr())
		}
	}
	return res
}

// GetState returns the lifecycle state of the node.
func (n *Node[T]) GetState() state.State {
	return n.state.GetState()
}

// Stats returns information about the node.
func (n *Node[T]) Stats() map[string]string {
	tip := n.GetChain()

	var fingerprint uint64
	if tip != nil {
		fingerprint = tip.Fingerprint()
	}

	return map[string]string{
		"state":           n.GetState().String(),
		"local_addr":      n.LocalAddr(),
		"advertise_addr":  n.trans.AdvertiseAddr(),
		"moniker":         n.conf.Moniker,
		"chain_length":    strconv.Itoa(tip.Len()),
		"tip_fingerprint": fmt.Sprintf("%016x", fingerprint),
		"chain_valid":     strconv.FormatBool(tip.IsWholeChainValid()),
		"num_peers":       strconv.Itoa(len(n.Peers())),
		"num_routines":    strconv.Itoa(n.state.Routines()),
	}
}

// Close stops accepting peers, closes every peer connection and waits for the
// node's goroutines to return. The current chain stays readable.
func (n *Node[T]) Close() error {
	var err error

	n.closeOnce.Do(func() {
		n.logger.Debug("Closing node")

		n.state.SetState(state.Shutdown)

		err = n.trans.Close()
		n.peers.CloseAll()
		n.state.WaitRoutines()
	})

	return err
}

// listen runs the acceptor loop.
func (n *Node[T]) listen() {
	err := n.trans.Listen(func(conn *net.Conn) {
		if !n.peers.Add(conn) {
			conn.Close()
			return
		}
		n.logger.WithField("peer", conn.RemoteAddr()).Debug("Accepted peer")
		n.state.GoFunc(func() { n.readLoop(conn) })
	})

	if err != nil {
		n.logger.WithError(err).Error("Acceptor stopped")
	}
}
