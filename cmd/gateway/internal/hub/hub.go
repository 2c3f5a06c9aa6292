package hub

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-ticker/cmd/gateway/internal/repository"
	"github.com/shubham-shewale/stock-ticker/pkg/models"
	"github.com/shubham-shewale/stock-ticker/pkg/protocol"
)

type ClientInterface interface {
	ID() string
	SendJSON(v interface{})
	SendBytes(b []byte)
	Close()
}

// SnapshotSource supplies the canonical price table at call time.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (models.Snapshot, error)
}

// Hub fans price events out to every connected client. Each send is
// non-blocking, so a slow client never holds up a tick.
type Hub struct {
	clients map[ClientInterface]bool

	source  SnapshotSource
	limiter repository.RateLimiter
	logger  *zap.Logger
	mu      sync.RWMutex
}

// NewHub builds a hub. limiter may be nil to allow unlimited refreshes.
func NewHub(source SnapshotSource, limiter repository.RateLimiter, logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[ClientInterface]bool),
		source:  source,
		limiter: limiter,
		logger:  logger,
	}
}

// Register adds a client and pushes it a full snapshot. Other clients see nothing.
// The snapshot is queued under the write lock, so no broadcast can reach
// the client ahead of it.
func (h *Hub) Register(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	h.logger.Info("Client connected", zap.String("client", client.ID()))
	h.sendSnapshot(client, "")
}

func (h *Hub) HandleCommand(client ClientInterface, req protocol.WSRequest) {
	switch req.Action {
	case protocol.ActionRefresh:
		h.handleRefresh(client, req)
	default:
		h.sendError(client, req.ID, "Unknown action: "+req.Action)
	}
}

func (h *Hub) handleRefresh(client ClientInterface, req protocol.WSRequest) {
	if h.limiter != nil {
		ok, err := h.limiter.Allow(client.ID())
		if err != nil {
			h.logger.Error("Rate limiter failed, allowing refresh", zap.String("client", client.ID()), zap.Error(err))
		} else if !ok {
			h.sendError(client, req.ID, "Refresh rate exceeded")
			return
		}
	}
	h.sendSnapshot(client, req.ID)
}

func (h *Hub) sendSnapshot(client ClientInterface, id string) {
	snap, err := h.source.Snapshot(context.Background())
	if err != nil {
		h.logger.Error("Failed to read snapshot", zap.String("client", client.ID()), zap.Error(err))
		h.sendError(client, id, "Snapshot unavailable")
		return
	}
	b, err := json.Marshal(protocol.Event{Type: protocol.EventSnapshot, ID: id, Data: snap})
	if err != nil {
		h.logger.Error("Failed to encode snapshot", zap.Error(err))
		return
	}
	client.SendBytes(b)
}

// BroadcastTick sends the full price table as an update event to every client.
func (h *Hub) BroadcastTick(ctx context.Context, snap models.Snapshot) {
	b, err := json.Marshal(protocol.Event{Type: protocol.EventUpdate, Data: snap})
	if err != nil {
		h.logger.Error("Failed to encode update", zap.Error(err))
		return
	}
	h.Broadcast(b)
}

// Broadcast delivers an encoded event to every client, best effort.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		client.SendBytes(payload)
	}
}

func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[client] {
		return
	}
	delete(h.clients, client)
	if h.limiter != nil {
		h.limiter.Forget(client.ID())
	}
	h.logger.Info("Client disconnected", zap.String("client", client.ID()))
	client.Close()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) sendError(c ClientInterface, id, msg string) {
	c.SendJSON(protocol.Event{Type: protocol.EventError, ID: id, Message: msg})
}
