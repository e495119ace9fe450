package chain

import (
	"encoding/binary"
	"fmt"

	"github.com/mosaicnetworks/gossipchain/src/common"
	"github.com/ugorji/go/codec"
)

// payloadHandle encodes payloads for fingerprinting. Canonical mode sorts map
// keys so that equal payloads always produce the same bytes.
var payloadHandle = func() *codec.MsgpackHandle {
	h := new(codec.MsgpackHandle)
	h.Canonical = true
	h.WriteExt = true
	return h
}()

// Block is one immutable record of a chain.
type Block[T comparable] struct {
	index       uint64
	payload     T
	previous    *Block[T]
	fingerprint uint64
}

// NewGenesis creates the first block of a new chain.
func NewGenesis[T comparable](payload T) *Block[T] {
	return &Block[T]{
		index:       0,
		payload:     payload,
		fingerprint: Fingerprint(payload, 0, 0),
	}
}

// Append returns a new chain made of prev followed by a block carrying
// payload. A nil prev yields a genesis block. prev is left unchanged.
func Append[T comparable](prev *Block[T], payload T) *Block[T] {
	if prev == nil {
		return NewGenesis(payload)
	}

	index := prev.index + 1

	return &Block[T]{
		index:       index,
		payload:     payload,
		previous:    prev,
		fingerprint: Fingerprint(payload, index, prev.fingerprint),
	}
}

// Fingerprint combines a payload, a block index and the fingerprint of the
// previous block (0 for a genesis block). It panics if T does not pass
// CheckPayloadType, since distinct payloads of such a type could share a
// fingerprint.
func Fingerprint[T comparable](payload T, index uint64, previous uint64) uint64 {
	if err := CheckPayloadType[T](); err != nil {
		panic(err)
	}

	var data []byte
	if err := codec.NewEncoderBytes(&data, payloadHandle).Encode(payload); err != nil {
		panic(fmt.Errorf("chain: encoding payload: %w", err))
	}

	var tail [16]byte
	binary.BigEndian.PutUint64(tail[:8], index)
	binary.BigEndian.PutUint64(tail[8:], previous)

	return common.Hash64(data, tail[:])
}

// Index returns the position of the block in its chain, 0 for genesis.
func (b *Block[T]) Index() uint64 {
	return b.index
}

// Payload returns the data carried by the block.
func (b *Block[T]) Payload() T {
	return b.payload
}

// Previous returns the parent block, or nil for a genesis block.
func (b *Block[T]) Previous() *Block[T] {
	return b.previous
}

// Fingerprint returns the fingerprint stamped at construction.
func (b *Block[T]) Fingerprint() uint64 {
	return b.fingerprint
}

// Len returns the number of blocks in the chain ending at b.
func (b *Block[T]) Len() int {
	if b == nil {
		return 0
	}
	return int(b.index) + 1
}

func (b *Block[T]) previousFingerprint() uint64 {
	if b.index == 0 || b.previous == nil {
		return 0
	}
	return b.previous.fingerprint
}

// IsValid reports whether the block's own fields are consistent with its
// stored fingerprint. Ancestors are not checked.
func (b *Block[T]) IsValid() bool {
	if b == nil {
		return false
	}

	if b.index == 0 {
		if b.previous != nil {
			return false
		}
	} else if b.previous == nil || b.previous.index+1 != b.index {
		return false
	}

	return b.fingerprint == Fingerprint(b.payload, b.index, b.previousFingerprint())
}

// IsWholeChainValid reports whether every block from b back to genesis is
// valid.
func (b *Block[T]) IsWholeChainValid() bool {
	if b == nil {
		return false
	}

	for block := b; block != nil; block = block.previous {
		if !block.IsValid() {
			return false
		}
	}

	return true
}

// Contains reports whether any block of the chain carries value.
func (b *Block[T]) Contains(value T) bool {
	for block := b; block != nil; block = block.previous {
		if block.payload == value {
			return true
		}
	}
	return false
}

// Blocks returns the blocks of the chain ordered from genesis to b.
func (b *Block[T]) Blocks() []*Block[T] {
	res := make([]*Block[T], b.Len())

	i := len(res) - 1
	for block := b; block != nil && i >= 0; block = block.previous {
		res[i] = block
		i--
	}

	// A broken link leaves leading holes; keep only what was reachable.
	return res[i+1:]
}

// Payloads returns the payloads of the chain ordered from genesis to b.
func (b *Block[T]) Payloads() []T {
	blocks := b.Blocks()

	res := make([]T, len(blocks))
	for i, block := range blocks {
		res[i] = block.payload
	}

	return res
}

// String ...
func (b *Block[T]) String() string {
	if b == nil {
		return "Block{<empty>}"
	}

	return fmt.Sprintf("Block{Index: %d, Payload: %v, Fingerprint: %d, Previous: %d, Valid: %t, WholeChainValid: %t}",
		b.index,
		b.payload,
		b.fingerprint,
		b.previousFingerprint(),
		b.IsValid(),
		b.IsWholeChainValid(),
	)
}

// Compare orders two chains. It returns a positive value when a is better, a
// negative value when b is better, and 0 when neither is better. A valid chain
// beats an invalid or empty one regardless of length. Two valid chains are
// ordered by length. Two invalid chains compare equal.
func Compare[T comparable](a, b *Block[T]) int {
	aValid := a.IsWholeChainValid()
	bValid := b.IsWholeChainValid()

	switch {
	case aValid && !bValid:
		return 1
	case !aValid && bValid:
		return -1
	case !aValid && !bValid:
		return 0
	}

	switch {
	case a.index > b.index:
		return 1
	case a.index < b.index:
		return -1
	default:
		return 0
	}
}

// Merge returns the better of two chains, keeping a on ties.
func Merge[T comparable](a, b *Block[T]) *Block[T] {
	if Compare(a, b) >= 0 {
		return a
	}
	return b
}
