//go:build real_waku

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	ma "github.com/multiformats/go-multiaddr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/waku-org/go-waku/waku/persistence"
	"github.com/waku-org/go-waku/waku/persistence/sqlite"
	wakuNode "github.com/waku-org/go-waku/waku/v2/node"
	legacyStore "github.com/waku-org/go-waku/waku/v2/protocol/legacy_store"
	wpb "github.com/waku-org/go-waku/waku/v2/protocol/pb"
	"github.com/waku-org/go-waku/waku/v2/protocol/relay"
	"github.com/waku-org/go-waku/waku/v2/utils"
)

const (
	wakuPubsubTopic   = "/waku/2/default-waku/proto"
	blobContentTopic  = "/eppie/1/mail-blob/proto"
	routeContentTopic = "/eppie/1/mail-route/proto"

	storeQueryPageSize = 100
)

// blobEntry carries one immutable ciphertext blob. The hash travels
// with the payload so receivers can verify without re-deriving topic
// structure.
type blobEntry struct {
	Hash string `json:"hash"`
	Blob []byte `json:"blob"`
}

// routeEntry binds a published blob to a recipient routing id.
type routeEntry struct {
	RoutingID string `json:"routingId"`
	Hash      string `json:"hash"`
}

// Waku is the networked backend. Blobs and route entries ride the
// relay as waku messages on dedicated content topics; reads go
// through store queries against bootstrap peers with failover.
type Waku struct {
	mu             sync.RWMutex
	node           *wakuNode.WakuNode
	cfg            Config
	bootstrapNodes []string
}

func newWakuClient(cfg Config) (Client, error) {
	return &Waku{cfg: cfg, bootstrapNodes: append([]string(nil), cfg.BootstrapNodes...)}, nil
}

func (w *Waku) Name() string { return TransportGoWaku }

func (w *Waku) Start(ctx context.Context) error {
	opts := make([]wakuNode.WakuNodeOption, 0)
	hostAddr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort("0.0.0.0", strconv.Itoa(w.cfg.Port)))
	if err != nil {
		return err
	}
	opts = append(opts, wakuNode.WithHostAddress(hostAddr))
	if w.cfg.EnableRelay {
		opts = append(opts, wakuNode.WithWakuRelay())
	}
	if w.cfg.EnableStore {
		provider, err := newStoreProvider()
		if err != nil {
			return err
		}
		opts = append(opts, wakuNode.WithMessageProvider(provider))
		opts = append(opts, wakuNode.WithWakuStore())
	}
	if w.cfg.EnableFilter {
		opts = append(opts, wakuNode.WithWakuFilterLightNode(), wakuNode.WithWakuFilterFullNode())
	}
	if w.cfg.EnableLightPush {
		opts = append(opts, wakuNode.WithLightPush())
	}

	node, err := wakuNode.New(opts...)
	if err != nil {
		return err
	}
	if err := node.Start(ctx); err != nil {
		return err
	}
	for _, addr := range w.cfg.BootstrapNodes {
		_ = node.DialPeer(ctx, addr)
	}

	w.mu.Lock()
	w.node = node
	w.mu.Unlock()
	return nil
}

func (w *Waku) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.node != nil {
		w.node.Stop()
		w.node = nil
	}
}

func (w *Waku) PeerCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.node == nil {
		return 0
	}
	return w.node.PeerCount()
}

func (w *Waku) ListenAddresses() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.node == nil {
		return nil
	}
	addrs := w.node.ListenAddresses()
	out := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, addr.String())
	}
	return out
}

func (w *Waku) Put(ctx context.Context, blob []byte) (string, error) {
	hash := ContentHash(blob)
	payload, err := json.Marshal(blobEntry{Hash: hash, Blob: blob})
	if err != nil {
		return "", err
	}
	if err := w.publish(ctx, blobContentTopic, payload); err != nil {
		return "", err
	}
	return hash, nil
}

func (w *Waku) Send(ctx context.Context, routingID, hash string) error {
	payload, err := json.Marshal(routeEntry{RoutingID: routingID, Hash: hash})
	if err != nil {
		return err
	}
	return w.publish(ctx, routeContentTopic, payload)
}

func (w *Waku) List(ctx context.Context, routingID string) ([]string, error) {
	seen := make(map[string]struct{})
	var hashes []string
	err := w.queryStore(ctx, routeContentTopic, func(payload []byte) {
		var entry routeEntry
		if err := json.Unmarshal(payload, &entry); err != nil {
			return
		}
		if entry.RoutingID != routingID || entry.Hash == "" {
			return
		}
		if _, ok := seen[entry.Hash]; ok {
			return
		}
		seen[entry.Hash] = struct{}{}
		hashes = append(hashes, entry.Hash)
	})
	if err != nil {
		return nil, err
	}
	// Store responses can mix peers and pages; keep the order stable.
	sort.Strings(hashes)
	return hashes, nil
}

func (w *Waku) Get(ctx context.Context, hash string) ([]byte, error) {
	var blob []byte
	err := w.queryStore(ctx, blobContentTopic, func(payload []byte) {
		if blob != nil {
			return
		}
		var entry blobEntry
		if err := json.Unmarshal(payload, &entry); err != nil {
			return
		}
		if entry.Hash != hash || ContentHash(entry.Blob) != hash {
			return
		}
		blob = entry.Blob
	})
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, hash)
	}
	return blob, nil
}

func (w *Waku) publish(ctx context.Context, contentTopic string, payload []byte) error {
	w.mu.RLock()
	node := w.node
	w.mu.RUnlock()
	if node == nil {
		return errors.New("go-waku node is not started")
	}
	ts := time.Now().UnixNano()
	wm := &wpb.WakuMessage{
		Payload:      payload,
		ContentTopic: contentTopic,
		Timestamp:    &ts,
	}
	_, err := node.Relay().Publish(ctx, wm, relay.WithPubSubTopic(wakuPubsubTopic))
	return err
}

// queryStore pages a legacy store query over the content topic and
// feeds every payload to consume. Peer candidates come from the
// bootstrap list up to the configured fanout, with one final attempt
// letting go-waku pick any available peer.
func (w *Waku) queryStore(ctx context.Context, contentTopic string, consume func(payload []byte)) error {
	w.mu.RLock()
	node := w.node
	bootstrapNodes := append([]string(nil), w.bootstrapNodes...)
	fanout := w.cfg.StoreQueryFanout
	failoverEnabled := w.cfg.Failover
	w.mu.RUnlock()
	if node == nil {
		return errors.New("go-waku node is not started")
	}
	if fanout <= 0 {
		fanout = 1
	}

	end := time.Now().UnixNano()
	criteria := legacyStore.Query{
		PubsubTopic:   wakuPubsubTopic,
		ContentTopics: []string{contentTopic},
		EndTime:       &end,
	}
	baseOpts := []legacyStore.HistoryRequestOption{legacyStore.WithPaging(true, storeQueryPageSize)}

	type queryCandidate struct {
		opts     []legacyStore.HistoryRequestOption
		peerAddr string
	}
	candidates := make([]queryCandidate, 0, fanout+1)
	seen := make(map[string]struct{}, len(bootstrapNodes))
	for _, addr := range bootstrapNodes {
		if len(candidates) >= fanout {
			break
		}
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		peerAddr, err := ma.NewMultiaddr(addr)
		if err != nil {
			continue
		}
		opts := append([]legacyStore.HistoryRequestOption{}, baseOpts...)
		opts = append(opts, legacyStore.WithPeerAddr(peerAddr))
		candidates = append(candidates, queryCandidate{opts: opts, peerAddr: addr})
	}
	candidates = append(candidates, queryCandidate{
		opts:     append([]legacyStore.HistoryRequestOption{}, baseOpts...),
		peerAddr: "auto",
	})
	if !failoverEnabled {
		candidates = candidates[:1]
	}

	var (
		result  *legacyStore.Result
		err     error
		lastErr error
	)
	for i, candidate := range candidates {
		attempt := i + 1
		result, err = node.LegacyStore().Query(ctx, criteria, candidate.opts...)
		if err == nil {
			if attempt > 1 {
				slog.Info("store query recovered via failover", "attempt", attempt)
			}
			break
		}
		slog.Warn("store query attempt failed", "peer_addr", candidate.peerAddr, "attempt", attempt, "reason", err.Error())
		lastErr = err
	}
	if err != nil {
		return lastErr
	}

	for {
		for _, wm := range result.Messages {
			if wm == nil {
				continue
			}
			consume(wm.Payload)
		}
		if result.IsComplete() {
			return nil
		}
		result, err = node.LegacyStore().Next(ctx, result)
		if err != nil {
			return err
		}
	}
}

func newStoreProvider() (*persistence.DBStore, error) {
	db, err := sqlite.NewDB(":memory:", utils.Logger())
	if err != nil {
		return nil, err
	}
	return persistence.NewDBStore(
		prometheus.DefaultRegisterer,
		utils.Logger(),
		persistence.WithDB(db),
		persistence.WithMigrations(sqlite.Migrations),
	)
}
