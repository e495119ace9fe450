package net

import "encoding/base64"

// RequestChain is the line a node sends to ask a peer for its chain. Any
// other line carries an encoded chain.
const RequestChain = "blockchain"

// EncodeFrame returns the text form of a binary message, suitable for a
// single line.
func EncodeFrame(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeFrame reverses EncodeFrame.
func DecodeFrame(line string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(line)
}
