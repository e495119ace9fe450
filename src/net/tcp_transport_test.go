package net

import (
	"testing"

	"github.com/mosaicnetworks/gossipchain/src/common"
)

func TestTCPTransport_BadAddr(t *testing.T) {
	_, err := NewTCPTransport("127.0.0.1:-1", "", 0, 0, common.NewTestEntry(t, common.TestLogLevel))
	if err == nil {
		t.Fatalf("binding an invalid port should fail")
	}
}

func TestTCPTransport_BadAdvertise(t *testing.T) {
	_, err := NewTCPTransport("127.0.0.1:0", "not an address", 0, 0, common.NewTestEntry(t, common.TestLogLevel))
	if err == nil {
		t.Fatalf("an unresolvable advertise address should fail")
	}
}

func TestTCPTransport_WithAdvertise(t *testing.T) {
	trans, err := NewTCPTransport("127.0.0.1:0", "127.0.0.1:12345", 0, 0, common.NewTestEntry(t, common.TestLogLevel))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer trans.Close()

	if trans.AdvertiseAddr() != "127.0.0.1:12345" {
		t.Fatalf("bad: %v", trans.AdvertiseAddr())
	}
	if trans.LocalAddr() == "127.0.0.1:12345" {
		t.Fatalf("local address should be the bound one")
	}
}
