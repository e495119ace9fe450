package service

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mosaicnetworks/gossipchain/src/chain"
	"github.com/mosaicnetworks/gossipchain/src/common"
)

type fakeNode struct {
	sync.Mutex
	tip     *chain.Block[string]
	failing bool

	// adopted, when set, replaces the chain right after each append, as if
	// a peer's longer chain had arrived.
	adopted *chain.Block[string]
}

func (f *fakeNode) GetChain() *chain.Block[string] {
	f.Lock()
	defer f.Unlock()
	return f.tip
}

func (f *fakeNode) AddBlock(payload string) (*chain.Block[string], error) {
	f.Lock()
	defer f.Unlock()
	tip := chain.Append(f.tip, payload)
	f.tip = tip
	if f.adopted != nil {
		f.tip = f.adopted
	}
	if f.failing {
		return tip, errors.New("peer unreachable")
	}
	return tip, nil
}

func (f *fakeNode) Peers() []string {
	return []string{"127.0.0.1:4000"}
}

func (f *fakeNode) Stats() map[string]string {
	return map[string]string{"chain_length": "2"}
}

func newTestService(t *testing.T, node *fakeNode) *httptest.Server {
	s := NewService[string]("127.0.0.1:0", node, common.NewTestEntry(t, common.TestLogLevel))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string, v interface{}) int {
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer resp.Body.Close()

	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("CORS header should be set")
	}

	if v != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("err: %v", err)
		}
	}

	return resp.StatusCode
}

func TestGetChain(t *testing.T) {
	node := &fakeNode{tip: chain.Append(chain.NewGenesis("X"), "Y")}
	ts := newTestService(t, node)

	var views []BlockView[string]
	if code := get(t, ts.URL+"/chain", &views); code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}

	if len(views) != 2 || views[0].Payload != "X" || views[1].Payload != "Y" {
		t.Fatalf("unexpected chain %+v", views)
	}
	if views[1].Fingerprint != node.tip.Fingerprint() || !views[1].Valid {
		t.Fatalf("unexpected tip %+v", views[1])
	}
}

func TestGetBlock(t *testing.T) {
	node := &fakeNode{tip: chain.Append(chain.NewGenesis("X"), "Y")}
	ts := newTestService(t, node)

	var view BlockView[string]
	if code := get(t, ts.URL+"/block/1", &view); code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	if view.Index != 1 || view.Payload != "Y" {
		t.Fatalf("unexpected block %+v", view)
	}

	if code := get(t, ts.URL+"/block/2", nil); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
	if code := get(t, ts.URL+"/block/abc", nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestGetStatsAndPeers(t *testing.T) {
	ts := newTestService(t, &fakeNode{})

	var stats map[string]string
	if code := get(t, ts.URL+"/stats", &stats); code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	if stats["chain_length"] != "2" {
		t.Fatalf("unexpected stats %v", stats)
	}

	var peers []string
	if code := get(t, ts.URL+"/peers", &peers); code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	if len(peers) != 1 || peers[0] != "127.0.0.1:4000" {
		t.Fatalf("unexpected peers %v", peers)
	}
}

func TestPostBlock(t *testing.T) {
	node := &fakeNode{tip: chain.NewGenesis("X")}
	ts := newTestService(t, node)

	resp, err := http.Post(ts.URL+"/block", "application/json", strings.NewReader(`"Y"`))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var view BlockView[string]
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("err: %v", err)
	}
	if view.Index != 1 || view.Payload != "Y" {
		t.Fatalf("unexpected block %+v", view)
	}

	if !node.GetChain().Contains("Y") {
		t.Fatalf("node should contain the posted payload")
	}
}

func TestPostBlock_Errors(t *testing.T) {
	node := &fakeNode{tip: chain.NewGenesis("X"), failing: true}
	ts := newTestService(t, node)

	resp, err := http.Post(ts.URL+"/block", "application/json", strings.NewReader(`42`))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("a payload of the wrong type should be rejected, got %d", resp.StatusCode)
	}

	resp, err = http.Post(ts.URL+"/block", "application/json", strings.NewReader(`"Y"`))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("a broadcast failure should be reported, got %d", resp.StatusCode)
	}
	if !node.GetChain().Contains("Y") {
		t.Fatalf("the block should be kept locally")
	}

	if code := get(t, ts.URL+"/block", nil); code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", code)
	}
}

func TestPostBlock_ChainMovedOn(t *testing.T) {
	longer := chain.Append(chain.Append(chain.Append(chain.NewGenesis("P"), "Q"), "R"), "S")
	node := &fakeNode{tip: chain.NewGenesis("X"), adopted: longer}
	ts := newTestService(t, node)

	resp, err := http.Post(ts.URL+"/block", "application/json", strings.NewReader(`"Y"`))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var view BlockView[string]
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("err: %v", err)
	}
	if view.Index != 1 || view.Payload != "Y" {
		t.Fatalf("response should describe the posted block, got %+v", view)
	}
	if node.GetChain() != longer {
		t.Fatalf("node should have moved on to the longer chain")
	}
}
