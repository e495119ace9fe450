// Package chain implements an immutable, backward-linked chain of blocks.
//
// A *Block[T] denotes the chain ending at that block. Blocks are never
// modified after construction: Append returns a new tip and leaves the old
// chain untouched, so several nodes and goroutines can share the same blocks.
//
// Every block stores a fingerprint computed once, at construction, from its
// payload, its index and the fingerprint of its parent. Recomputing it later
// is the validity check. The fingerprint is FNV-1a over a canonical msgpack
// encoding; it catches accidental corruption only. It is not a cryptographic
// hash, so a peer can fabricate a long, internally consistent chain and it
// will be accepted as valid.
//
// Payloads must round-trip through the codec unchanged, which rules out
// unexported struct fields, pointers and interfaces; see CheckPayloadType.
// Marshal and Unmarshal return ErrUnsupportedPayload for such types, and
// Append panics.
//
// Compare and Merge pick the better of two chains: a valid chain always beats
// an invalid (or empty) one, and between two valid chains the longer one wins.
// Ties keep the left operand.
package chain
