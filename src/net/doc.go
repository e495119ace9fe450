// Package net carries newline-delimited messages between nodes.
//
// A Transport binds a StreamLayer (plain TCP in practice), hands every
// accepted connection to a caller-supplied handler, and dials outgoing
// connections. Each connection is wrapped in a Conn that reads and writes
// whole lines.
//
// On top of the lines, nodes speak a two-message protocol:
//
//	blockchain\n          // request: send me your chain
//	<base64 of chain>\n   // a chain, solicited or not
//
// Both sides may send either message at any time. Nothing here times out
// except dialing, when a timeout is configured.
package net
