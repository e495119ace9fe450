// Package node implements a gossipchain node.
//
// A Node owns one current chain and a set of peer connections. It runs one
// goroutine accepting inbound connections and one goroutine per connection
// reading that peer's messages.
//
// Synchronisation is a single exchange repeated over time. When a node
// connects to a peer it sends a chain request and merges the chain it gets
// back. Whenever a node's chain changes, either because AddBlock appended to
// it or because a peer sent a better one, the node sends the new chain to all
// its peers. A received chain that is not strictly better is dropped without
// being forwarded, so an update stops at nodes that already had it. Multi-hop
// delivery is best effort: a node that already had an equal chain through
// another path does not forward it further.
//
// Errors from AddNode, JoinNode and AddBlock are returned to the caller.
// Errors in a peer's reader goroutine end that peer's connection and are
// logged; nothing is retried or reconnected.
package node
