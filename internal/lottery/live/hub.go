package live

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/lottery-points-platform/internal/lottery/domain"
	"github.com/radieske/lottery-points-platform/internal/lottery/results"
	"github.com/radieske/lottery-points-platform/pkg/contracts/events"
)

// ClientMsg é o que o cliente envia: subscribe | unsubscribe | ping
type ClientMsg struct {
	Type     string `json:"type"`
	Modality string `json:"modality"`
}

// Snapshotter fornece o último resultado ao assinar uma modalidade
type Snapshotter interface {
	Latest(ctx context.Context, modality string) (events.DrawSettled, bool, error)
}

// client serializa as escritas: gorilla/websocket não aceita escritas concorrentes
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

func (c *client) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.write(b)
}

// Hub mantém as assinaturas de resultados por modalidade
type Hub struct {
	upgrader websocket.Upgrader
	snap     Snapshotter
	log      *zap.Logger

	mu   sync.RWMutex
	subs map[string]map[*client]struct{}
}

func NewHub(allowOrigin func(r *http.Request) bool, snap Snapshotter, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		snap:     snap,
		log:      log,
		subs:     make(map[string]map[*client]struct{}),
	}
}

// HandleWS atende uma conexão até o cliente desconectar
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	c := &client{conn: conn}

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			m, err := domain.ParseModality(msg.Modality)
			if err != nil {
				_ = c.writeJSON(map[string]string{"type": "error", "error": err.Error()})
				continue
			}
			h.subscribe(string(m), c)
			_ = c.writeJSON(map[string]string{"type": "subscribed", "modality": string(m)})
			h.sendSnapshot(r.Context(), string(m), c)
		case "unsubscribe":
			if m, err := domain.ParseModality(msg.Modality); err == nil {
				h.unsubscribe(string(m), c)
			}
		case "ping":
			_ = c.writeJSON(map[string]string{"type": "pong"})
		}
	}

	h.mu.Lock()
	for m, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, m)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) subscribe(modality string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[modality]; !ok {
		h.subs[modality] = make(map[*client]struct{})
	}
	h.subs[modality][c] = struct{}{}
}

func (h *Hub) unsubscribe(modality string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[modality]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, modality)
		}
	}
}

func (h *Hub) sendSnapshot(ctx context.Context, modality string, c *client) {
	if h.snap == nil {
		return
	}
	e, found, err := h.snap.Latest(ctx, modality)
	if err != nil {
		h.log.Warn("live: snapshot lookup failed", zap.String("modality", modality), zap.Error(err))
		return
	}
	if found {
		_ = c.writeJSON(results.Update{Modality: modality, Payload: e})
	}
}

// Subscribers conta as conexões inscritas na modalidade
func (h *Hub) Subscribers(modality string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[modality])
}

// Broadcast entrega o resultado a todos os inscritos na modalidade
func (h *Hub) Broadcast(u results.Update) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.subs[u.Modality]))
	for c := range h.subs[u.Modality] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	b, err := json.Marshal(u)
	if err != nil {
		return
	}
	for _, c := range targets {
		if err := c.write(b); err != nil {
			h.log.Debug("live: write failed", zap.Error(err))
		}
	}
}
