package chain

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/ugorji/go/codec"
)

var (
	// ErrTypeMismatch is returned when decoding a chain whose payload type
	// differs from the requested one.
	ErrTypeMismatch = errors.New("payload type mismatch")

	// ErrMalformed is returned when encoded bytes do not describe a chain.
	ErrMalformed = errors.New("malformed chain")
)

var wireHandle = func() *codec.MsgpackHandle {
	h := new(codec.MsgpackHandle)
	h.WriteExt = true
	return h
}()

// wireBlock is the serialized form of a block. The parent link is implied by
// the position in wireChain.Blocks.
type wireBlock[T comparable] struct {
	Index       uint64 `codec:"i"`
	Payload     T      `codec:"p"`
	Fingerprint uint64 `codec:"f"`
}

// wireChain lists the blocks of a chain from genesis to tip.
type wireChain[T comparable] struct {
	Type   string         `codec:"t"`
	Blocks []wireBlock[T] `codec:"b"`
}

type wireHeader struct {
	Type string `codec:"t"`
}

// PayloadType returns the name used to tag chains of payload type T on the
// wire.
func PayloadType[T comparable]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

// Marshal encodes the chain ending at tip, with its stored fingerprints, in
// msgpack. A nil tip encodes an empty chain. Payload types rejected by
// CheckPayloadType yield ErrUnsupportedPayload.
func Marshal[T comparable](tip *Block[T]) ([]byte, error) {
	if err := CheckPayloadType[T](); err != nil {
		return nil, err
	}

	blocks := tip.Blocks()

	wc := wireChain[T]{
		Type:   PayloadType[T](),
		Blocks: make([]wireBlock[T], len(blocks)),
	}

	for i, b := range blocks {
		wc.Blocks[i] = wireBlock[T]{
			Index:       b.index,
			Payload:     b.payload,
			Fingerprint: b.fingerprint,
		}
	}

	var data []byte
	if err := codec.NewEncoderBytes(&data, wireHandle).Encode(&wc); err != nil {
		return nil, err
	}

	return data, nil
}

// Unmarshal decodes bytes produced by Marshal. Fingerprints are restored as
// they were stored, not recomputed, so a corrupted chain stays detectable.
// An empty chain decodes to nil.
func Unmarshal[T comparable](data []byte) (*Block[T], error) {
	if err := CheckPayloadType[T](); err != nil {
		return nil, err
	}

	// Check the type tag before touching payloads so that a foreign payload
	// type is reported as such rather than as a codec failure.
	var header wireHeader
	if err := codec.NewDecoderBytes(data, wireHandle).Decode(&header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if want := PayloadType[T](); header.Type != want {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrTypeMismatch, header.Type, want)
	}

	var wc wireChain[T]
	if err := codec.NewDecoderBytes(data, wireHandle).Decode(&wc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var tip *Block[T]
	for i, wb := range wc.Blocks {
		if wb.Index != uint64(i) {
			return nil, fmt.Errorf("%w: block %d has index %d", ErrMalformed, i, wb.Index)
		}

		tip = &Block[T]{
			index:       wb.Index,
			payload:     wb.Payload,
			previous:    tip,
			fingerprint: wb.Fingerprint,
		}
	}

	return tip, nil
}
