// Package eventfeed exposes live session events over WebSocket so a
// UI or another process can follow a transcription as it happens.
package eventfeed

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voxtail/voxtail/pkg/session"
	"github.com/voxtail/voxtail/pkg/transcript"
)

const (
	writeWait      = 10 * time.Second
	clientQueue    = 64
	maxMessageSize = 512
)

// Envelope is the wire format for every feed message.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Event types carried in Envelope.Type.
const (
	TypePartial = "partial"
	TypeSegment = "segment"
	TypeState   = "state"
	TypeError   = "error"
)

type Option func(*Feed)

func WithLogger(l *log.Logger) Option {
	return func(f *Feed) { f.log = l }
}

// Feed fans session events out to connected WebSocket clients. Slow
// clients are disconnected rather than allowed to stall the session.
type Feed struct {
	log      *log.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func New(opts ...Option) *Feed {
	f := &Feed{
		log: log.New(os.Stderr, "eventfeed: ", log.LstdFlags),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The feed is a loopback convenience, not an exposed API.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Attach subscribes the feed to an orchestrator's events.
func (f *Feed) Attach(o *session.Orchestrator) error {
	if err := o.OnPartial(func(text string) {
		f.Broadcast(Envelope{Type: TypePartial, Data: text})
	}); err != nil {
		return err
	}
	if err := o.OnSegment(func(seg transcript.Segment) {
		f.Broadcast(Envelope{Type: TypeSegment, Data: seg})
	}); err != nil {
		return err
	}
	if err := o.OnStateChange(func(running bool) {
		f.Broadcast(Envelope{Type: TypeState, Data: running})
	}); err != nil {
		return err
	}
	return o.OnError(func(err error) {
		f.Broadcast(Envelope{Type: TypeError, Data: err.Error()})
	})
}

// ServeHTTP upgrades the request and streams events until the client
// disconnects.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.log.Printf("upgrade failed: %v", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, clientQueue)}

	f.mu.Lock()
	f.clients[c] = struct{}{}
	n := len(f.clients)
	f.mu.Unlock()
	f.log.Printf("client connected (%d active)", n)

	go f.writeLoop(c)
	f.readLoop(c)
}

// Broadcast sends an envelope to every connected client.
func (f *Feed) Broadcast(env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		f.log.Printf("marshal %s event: %v", env.Type, err)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		select {
		case c.send <- payload:
		default:
			// Backed-up client. Drop it so the publisher never blocks.
			delete(f.clients, c)
			c.close()
		}
	}
}

// ClientCount reports the number of connected clients.
func (f *Feed) ClientCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// Close disconnects all clients.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		delete(f.clients, c)
		c.close()
	}
}

func (f *Feed) writeLoop(c *client) {
	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			f.drop(c)
			return
		}
	}
}

// readLoop drains incoming frames so pings and close frames are
// processed. The feed is one-way; client payloads are discarded.
func (f *Feed) readLoop(c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			f.drop(c)
			return
		}
	}
}

func (f *Feed) drop(c *client) {
	f.mu.Lock()
	delete(f.clients, c)
	f.mu.Unlock()
	c.close()
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
		c.conn.Close()
	})
}
