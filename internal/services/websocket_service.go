package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/TattooNOW/tattoonow-show/internal/broadcast"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// Window is the role of a browser window attached to a show
type Window string

const (
	WindowAudience  Window = "audience"
	WindowPresenter Window = "presenter"
	WindowNotes     Window = "notes"
)

// ParseWindow validates a window role, defaulting to audience
func ParseWindow(s string) (Window, error) {
	switch Window(s) {
	case "":
		return WindowAudience, nil
	case WindowAudience, WindowPresenter, WindowNotes:
		return Window(s), nil
	}
	return "", fmt.Errorf("unknown window %q", s)
}

// topics returns the bus channels a window listens on
func (w Window) topics() []broadcast.Topic {
	if w == WindowAudience {
		return []broadcast.Topic{broadcast.TopicState}
	}
	return []broadcast.Topic{broadcast.TopicState, broadcast.TopicNotes}
}

// Client is one connected browser window
type Client struct {
	ID     string
	ShowID string
	Window Window

	conn    *websocket.Conn
	session *Session
	send    chan []byte
	subs    []*broadcast.Subscription
	once    sync.Once
	done    chan struct{}
}

// WebSocketService bridges browser windows onto their show's sync bus
type WebSocketService struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	stopped    chan struct{}
}

// NewWebSocketService creates a new websocket service
func NewWebSocketService() *WebSocketService {
	return &WebSocketService{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopped:    make(chan struct{}),
	}
}

// Run tracks connected clients until ctx is cancelled, then disconnects them
func (ws *WebSocketService) Run(ctx context.Context) {
	defer close(ws.stopped)
	for {
		select {
		case c := <-ws.register:
			ws.mu.Lock()
			ws.clients[c] = struct{}{}
			ws.mu.Unlock()
			log.Printf("Window connected: show=%s window=%s id=%s", c.ShowID, c.Window, c.ID)
		case c := <-ws.unregister:
			ws.mu.Lock()
			delete(ws.clients, c)
			ws.mu.Unlock()
			log.Printf("Window disconnected: show=%s window=%s id=%s", c.ShowID, c.Window, c.ID)
		case <-ctx.Done():
			ws.mu.Lock()
			clients := ws.clients
			ws.clients = make(map[*Client]struct{})
			ws.mu.Unlock()
			for c := range clients {
				c.close()
			}
			return
		}
	}
}

// ClientCount returns the number of windows attached to showID
func (ws *WebSocketService) ClientCount(showID string) int {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	n := 0
	for c := range ws.clients {
		if c.ShowID == showID {
			n++
		}
	}
	return n
}

// Serve attaches conn to session as a window and blocks until it disconnects
func (ws *WebSocketService) Serve(ctx context.Context, conn *websocket.Conn, session *Session, window Window) {
	c := &Client{
		ID:      string(window) + ":" + uuid.NewString(),
		ShowID:  session.ShowID,
		Window:  window,
		conn:    conn,
		session: session,
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
	}

	// subscribe before the snapshot so nothing published in between is lost
	for _, topic := range window.topics() {
		c.subs = append(c.subs, session.Bus.Subscribe(topic))
	}

	select {
	case ws.register <- c:
	case <-ws.stopped:
		c.close()
		return
	case <-ctx.Done():
		c.close()
		return
	}
	defer func() {
		select {
		case ws.unregister <- c:
		case <-ws.stopped:
		}
	}()

	for _, msg := range session.Controller.SyncMessages() {
		c.enqueue(msg)
	}
	if window == WindowNotes || window == WindowPresenter {
		session.Bus.Publish(broadcast.ContextMessage{Origin: c.ID, Kind: broadcast.ContextReady})
	}

	var wg sync.WaitGroup
	for _, sub := range c.subs {
		wg.Add(1)
		go func(sub *broadcast.Subscription) {
			defer wg.Done()
			c.forward(sub)
		}(sub)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writePump()
	}()

	c.readPump()
	c.close()
	wg.Wait()
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		for _, sub := range c.subs {
			sub.Close()
		}
		c.conn.Close()
	})
}

// enqueue encodes msg for the window. A window that cannot keep up is
// disconnected and resyncs when it reconnects.
func (c *Client) enqueue(msg broadcast.Message) {
	data, err := broadcast.Encode(msg)
	if err != nil {
		log.Printf("Failed to encode message for %s: %v", c.ID, err)
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	default:
		log.Printf("Window %s is not keeping up, disconnecting", c.ID)
		c.close()
	}
}

// forward copies bus messages from other windows to this one
func (c *Client) forward(sub *broadcast.Subscription) {
	for {
		select {
		case msg, ok := <-sub.C():
			if !ok {
				// bus closed by a reload; the window must reconnect
				c.close()
				return
			}
			if msg.Source() == c.ID {
				continue
			}
			c.enqueue(msg)
		case <-c.done:
			return
		}
	}
}

// readPump republishes the window's messages under its own origin
func (c *Client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error on %s: %v", c.ID, err)
			}
			return
		}

		msg, err := broadcast.Decode(data)
		if err != nil {
			log.Printf("Ignoring message from %s: %v", c.ID, err)
			continue
		}
		switch m := msg.(type) {
		case broadcast.StateMessage:
			m.Origin = c.ID
			c.session.Bus.Publish(m)
		case broadcast.ContextMessage:
			// windows may ask for the context; only the controller sends it
			if m.Kind == broadcast.ContextReady {
				m.Origin = c.ID
				c.session.Bus.Publish(m)
			}
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
