package service

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/mosaicnetworks/gossipchain/src/chain"
	"github.com/sirupsen/logrus"
)

// Node is what the service needs from a node.
type Node[T comparable] interface {
	GetChain() *chain.Block[T]
	AddBlock(payload T) (*chain.Block[T], error)
	Peers() []string
	Stats() map[string]string
}

// BlockView is the JSON rendering of a block.
type BlockView[T comparable] struct {
	Index       uint64 `json:"index"`
	Payload     T      `json:"payload"`
	Fingerprint uint64 `json:"fingerprint"`
	Valid       bool   `json:"valid"`
}

func newBlockView[T comparable](b *chain.Block[T]) BlockView[T] {
	return BlockView[T]{
		Index:       b.Index(),
		Payload:     b.Payload(),
		Fingerprint: b.Fingerprint(),
		Valid:       b.IsValid(),
	}
}

// Service exposes a node over HTTP.
type Service[T comparable] struct {
	sync.Mutex

	bindAddress string
	node        Node[T]
	mux         *http.ServeMux
	logger      *logrus.Entry
}

// NewService ...
func NewService[T comparable](bindAddress string, n Node[T], logger *logrus.Entry) *Service[T] {
	service := Service[T]{
		bindAddress: bindAddress,
		node:        n,
		mux:         http.NewServeMux(),
		logger:      logger,
	}

	service.registerHandlers()

	return &service
}

// registerHandlers registers the API handlers on the service's own mux, so
// that several services can live in one process.
func (s *Service[T]) registerHandlers() {
	s.logger.Debug("Registering API handlers")
	s.mux.HandleFunc("/stats", s.makeHandler(s.GetStats))
	s.mux.HandleFunc("/chain", s.makeHandler(s.GetChain))
	s.mux.HandleFunc("/block", s.makeHandler(s.PostBlock))
	s.mux.HandleFunc("/block/", s.makeHandler(s.GetBlock))
	s.mux.HandleFunc("/peers", s.makeHandler(s.GetPeers))
}

func (s *Service[T]) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		defer s.Unlock()

		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// Handler returns the http.Handler serving the API.
func (s *Service[T]) Handler() http.Handler {
	return s.mux
}

// Serve calls ListenAndServe. This is a blocking call.
func (s *Service[T]) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving API")

	err := http.ListenAndServe(s.bindAddress, s.mux)
	if err != nil {
		s.logger.Error(err)
	}
}

// GetStats ...
func (s *Service[T]) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.node.Stats())
}

// GetPeers ...
func (s *Service[T]) GetPeers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.node.Peers())
}

// GetChain returns every block of the current chain, genesis first.
func (s *Service[T]) GetChain(w http.ResponseWriter, r *http.Request) {
	blocks := s.node.GetChain().Blocks()

	views := make([]BlockView[T], len(blocks))
	for i, b := range blocks {
		views[i] = newBlockView(b)
	}

	writeJSON(w, views)
}

// GetBlock returns the block at the index given in the path.
func (s *Service[T]) GetBlock(w http.ResponseWriter, r *http.Request) {
	param := r.URL.Path[len("/block/"):]

	blockIndex, err := strconv.Atoi(param)
	if err != nil {
		s.logger.WithError(err).Errorf("Parsing block_index parameter %s", param)

		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	blocks := s.node.GetChain().Blocks()

	if blockIndex < 0 || blockIndex >= len(blocks) {
		http.Error(w, "block not found", http.StatusNotFound)

		return
	}

	writeJSON(w, newBlockView(blocks[blockIndex]))
}

// PostBlock appends the JSON payload in the request body to the chain.
func (s *Service[T]) PostBlock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

		return
	}

	var payload T
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	tip, err := s.node.AddBlock(payload)
	if err != nil {
		// The block is in the local chain even if some peers missed it.
		s.logger.WithError(err).Warn("Broadcasting new block")

		http.Error(w, err.Error(), http.StatusBadGateway)

		return
	}

	writeJSONStatus(w, http.StatusCreated, newBlockView(tip))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(v)
}
