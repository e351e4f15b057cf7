package main

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const wsIdlePingInterval = 30 * time.Second

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// analysisPayload describes one completed search to connected observers.
type analysisPayload struct {
	Event         string `json:"event"`
	Difficulty    string `json:"difficulty,omitempty"`
	Move          *Move  `json:"move,omitempty"`
	Depth         int    `json:"depth,omitempty"`
	Nodes         int    `json:"nodes,omitempty"`
	ElapsedMs     int64  `json:"elapsed_ms,omitempty"`
	Evaluator     string `json:"evaluator,omitempty"`
	TotalSearches int64  `json:"total_searches"`
	UpdatedAt     int64  `json:"updated_at_ms"`
}

type AnalysisClient struct {
	hub  *AnalysisHub
	conn *websocket.Conn
	send chan []byte
}

type AnalysisHub struct {
	mu        sync.Mutex
	clients   map[*AnalysisClient]struct{}
	searches  int64
	broadcast chan analysisPayload
}

func NewAnalysisHub() *AnalysisHub {
	return &AnalysisHub{
		clients:   make(map[*AnalysisClient]struct{}),
		broadcast: make(chan analysisPayload, 64),
	}
}

func (h *AnalysisHub) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case payload := <-h.broadcast:
			h.mu.Lock()
			if len(h.clients) == 0 {
				h.mu.Unlock()
				continue
			}
			for client := range h.clients {
				client.sendJSON(wsMessage{Type: "analysis", Payload: mustMarshal(payload)})
			}
			h.mu.Unlock()
		}
	}
}

// PublishSearch reports a finished search. Publishing never blocks; events
// are dropped when the hub cannot keep up.
func (h *AnalysisHub) PublishSearch(difficulty string, move Move, stats SearchStats) {
	h.mu.Lock()
	h.searches++
	total := h.searches
	h.mu.Unlock()
	payload := analysisPayload{
		Event:         "search",
		Difficulty:    difficulty,
		Move:          &move,
		Depth:         stats.Depth,
		Nodes:         stats.Nodes,
		ElapsedMs:     stats.Elapsed.Milliseconds(),
		Evaluator:     stats.Evaluator,
		TotalSearches: total,
		UpdatedAt:     time.Now().UnixMilli(),
	}
	select {
	case h.broadcast <- payload:
	default:
	}
}

func (h *AnalysisHub) TotalSearches() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.searches
}

func (h *AnalysisHub) Register(c *AnalysisClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *AnalysisHub) Unregister(c *AnalysisClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (c *AnalysisClient) sendJSON(msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// writePump drains the send channel onto the connection, pinging after 30s
// of idle so intermediaries keep the connection open.
func (c *AnalysisClient) writePump() {
	defer c.conn.Close()
	ticker := time.NewTicker(wsIdlePingInterval)
	defer ticker.Stop()
	lastWrite := time.Now()
	ping := mustMarshal(wsMessage{Type: "ping"})
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
			lastWrite = time.Now()
		case <-ticker.C:
			if time.Since(lastWrite) < wsIdlePingInterval {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, ping); err != nil {
				return
			}
			lastWrite = time.Now()
		}
	}
}

func serveAnalysisWS(hub *AnalysisHub, w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &AnalysisClient{hub: hub, conn: conn, send: make(chan []byte, 16)}
	hub.Register(client)

	initial := analysisPayload{
		Event:         "snapshot",
		TotalSearches: hub.TotalSearches(),
		UpdatedAt:     time.Now().UnixMilli(),
	}
	client.sendJSON(wsMessage{Type: "analysis", Payload: mustMarshal(initial)})

	go client.writePump()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			hub.Unregister(client)
			return
		}
	}
}
