// Package monitor provides a WebSocket server that broadcasts IR burst
// events as controllers send them, for a debug dashboard or a remote
// watching toggle/address state change in real time.
package monitor

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	lpflog "github.com/azachar/lpf-go/pkg/log"
	"github.com/gorilla/websocket"
)

var log = lpflog.New("monitor")

// CommandKind identifies which LPF command family produced a BurstEvent.
type CommandKind string

const (
	KindSingleOutput CommandKind = "single_output"
	KindComboDirect  CommandKind = "combo_direct"
	KindComboPwm     CommandKind = "combo_pwm"
	KindExtended     CommandKind = "extended"
)

// BurstEvent describes one completed (or failed) repeat burst, as a
// controller's Send call would report it.
type BurstEvent struct {
	Channel   int         `json:"channel"`
	Kind      CommandKind `json:"kind"`
	Nibble1   uint8       `json:"nibble1"`
	Nibble2   uint8       `json:"nibble2"`
	Nibble3   uint8       `json:"nibble3"`
	LRC       uint8       `json:"lrc"`
	Toggle    uint8       `json:"toggle"`
	Address   uint8       `json:"address"`
	Repeats   int         `json:"repeats"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Server broadcasts BurstEvents to connected WebSocket clients.
type Server struct {
	// HTTP server
	httpServer *http.Server
	addr       string

	// WebSocket management
	wsUpgrader websocket.Upgrader
	wsClients  map[int64]*wsClient
	wsClientMu sync.RWMutex
	nextWSID   int64

	// Ring buffer of the most recent events, served to newly connected
	// clients and to GET /events.
	history   []BurstEvent
	historyMu sync.RWMutex
	historyN  int

	running   atomic.Bool
	startTime time.Time
}

// Config holds server configuration.
type Config struct {
	// Addr is the HTTP address to listen on (e.g., ":8765").
	Addr string

	// HistorySize bounds how many recent BurstEvents are retained for
	// replay to newly connected clients. Defaults to 100 if zero.
	HistorySize int
}

// New creates a new monitor server.
func New(cfg Config) *Server {
	historyN := cfg.HistorySize
	if historyN <= 0 {
		historyN = 100
	}
	s := &Server{
		addr:      cfg.Addr,
		wsClients: make(map[int64]*wsClient),
		historyN:  historyN,
		startTime: time.Now(),
	}
	s.wsUpgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	return s
}

// History returns a copy of the retained burst events, oldest first. Safe
// to call concurrently with Publish.
func (s *Server) History() []BurstEvent {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()
	out := make([]BurstEvent, len(s.history))
	copy(out, s.history)
	return out
}

// Publish records a BurstEvent and broadcasts it to all connected clients.
// Safe to call from multiple controller goroutines concurrently.
func (s *Server) Publish(evt BurstEvent) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	s.historyMu.Lock()
	s.history = append(s.history, evt)
	if len(s.history) > s.historyN {
		s.history = s.history[len(s.history)-s.historyN:]
	}
	s.historyMu.Unlock()

	s.wsClientMu.RLock()
	defer s.wsClientMu.RUnlock()
	for _, c := range s.wsClients {
		c.send(evt)
	}
}

// Start starts the HTTP+WebSocket server (blocks until Stop is called).
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.corsMiddleware(mux),
	}

	s.running.Store(true)
	log.WithField("addr", s.addr).Info("server starting")

	return s.httpServer.ListenAndServe()
}

// Stop stops the server and closes all WebSocket clients.
func (s *Server) Stop() error {
	s.running.Store(false)

	s.wsClientMu.Lock()
	for _, c := range s.wsClients {
		c.close()
	}
	s.wsClients = make(map[int64]*wsClient)
	s.wsClientMu.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

// IsRunning reports whether the server is accepting connections.
func (s *Server) IsRunning() bool {
	return s.running.Load()
}

// handleEvents returns the retained burst history as JSON.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.historyMu.RLock()
	events := make([]BurstEvent, len(s.history))
	copy(events, s.history)
	s.historyMu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK\n"))
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleWebSocket upgrades a connection and replays recent history before
// streaming live BurstEvents.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Error("WebSocket upgrade failed")
		return
	}

	id := atomic.AddInt64(&s.nextWSID, 1)
	client := newWSClient(id, conn)

	s.wsClientMu.Lock()
	s.wsClients[id] = client
	s.wsClientMu.Unlock()

	log.WithField("client", id).Info("client connected")

	go client.writePump()

	s.historyMu.RLock()
	for _, evt := range s.history {
		client.send(evt)
	}
	s.historyMu.RUnlock()

	client.readPump() // blocks until the client disconnects

	s.wsClientMu.Lock()
	delete(s.wsClients, id)
	s.wsClientMu.Unlock()
	log.WithField("client", id).Info("client disconnected")
}

// wsClient is one connected WebSocket subscriber.
type wsClient struct {
	id     int64
	conn   *websocket.Conn
	sendCh chan BurstEvent
	done   chan struct{}
	mu     sync.Mutex
}

func newWSClient(id int64, conn *websocket.Conn) *wsClient {
	return &wsClient{
		id:     id,
		conn:   conn,
		sendCh: make(chan BurstEvent, 64),
		done:   make(chan struct{}),
	}
}

func (c *wsClient) send(evt BurstEvent) {
	select {
	case c.sendCh <- evt:
	case <-c.done:
	default:
		log.WithField("client", c.id).Warn("dropping event, send channel full")
	}
}

func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
		return
	default:
		close(c.done)
	}
	c.conn.Close()
}

func (c *wsClient) readPump() {
	defer c.close()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).WithField("client", c.id).Warn("WebSocket read error")
			}
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case evt, ok := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(evt); err != nil {
				log.WithError(err).WithField("client", c.id).Warn("WebSocket write error")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}
