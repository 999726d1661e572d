package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gorilla/websocket"
)

// BridgeOptions tunes reconnect behaviour
type BridgeOptions struct {
	Header       http.Header
	InitialDelay time.Duration
	MaxDelay     time.Duration
	DialTimeout  time.Duration
}

// Bridge keeps a persistent connection to an external control device and
// dispatches the commands it sends. Failures degrade to "external control
// unavailable" and are retried silently.
type Bridge struct {
	url       string
	nav       Navigator
	opts      BridgeOptions
	dialer    *websocket.Dialer
	available atomic.Bool
	outage    atomic.Bool
}

// NewBridge creates a bridge that drives nav from the device at url
func NewBridge(url string, nav Navigator, opts BridgeOptions) *Bridge {
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 500 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 30 * time.Second
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	return &Bridge{
		url:    url,
		nav:    nav,
		opts:   opts,
		dialer: &websocket.Dialer{HandshakeTimeout: opts.DialTimeout},
	}
}

// Available reports whether the device connection is currently up
func (b *Bridge) Available() bool {
	return b.available.Load()
}

// droppedError marks a session that connected and later lost the device
type droppedError struct{ err error }

func (e *droppedError) Error() string { return e.err.Error() }
func (e *droppedError) Unwrap() error { return e.err }

// Run connects and reconnects until ctx is cancelled. The backoff starts over
// at InitialDelay each time an established connection drops.
func (b *Bridge) Run(ctx context.Context) {
	for ctx.Err() == nil {
		err := retry.Do(
			func() error { return b.session(ctx) },
			retry.Context(ctx),
			retry.Attempts(0),
			retry.Delay(b.opts.InitialDelay),
			retry.MaxDelay(b.opts.MaxDelay),
			retry.DelayType(retry.BackOffDelay),
			retry.LastErrorOnly(true),
			retry.RetryIf(func(err error) bool {
				var dropped *droppedError
				return ctx.Err() == nil && !errors.As(err, &dropped)
			}),
			retry.OnRetry(func(n uint, err error) {
				if b.outage.CompareAndSwap(false, true) {
					log.Printf("External control unavailable (%s): %v", b.url, err)
				}
			}),
		)

		var dropped *droppedError
		if !errors.As(err, &dropped) {
			continue
		}
		if b.outage.CompareAndSwap(false, true) {
			log.Printf("External control unavailable (%s): %v", b.url, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(b.opts.InitialDelay):
		}
	}
}

func (b *Bridge) session(ctx context.Context) error {
	conn, _, err := b.dialer.DialContext(ctx, b.url, b.opts.Header)
	if err != nil {
		return fmt.Errorf("failed to dial control device: %w", err)
	}
	defer conn.Close()

	b.available.Store(true)
	defer b.available.Store(false)
	if b.outage.Swap(false) {
		log.Printf("External control reconnected: %s", b.url)
	} else {
		log.Printf("External control connected: %s", b.url)
	}

	stop := context.AfterFunc(ctx, func() {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	})
	defer stop()

	err = ServeConn(conn, b.nav, false)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		err = errors.New("control device closed the connection")
	}
	return &droppedError{err: err}
}

// ServeConn reads command requests from conn and dispatches them until the
// connection closes. With ack set, each request is answered with its Result or
// an error object. A clean close returns nil.
func ServeConn(conn *websocket.Conn, nav Navigator, ack bool) error {
	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				log.Printf("Ignoring malformed control message: %v", err)
				continue
			}
			return err
		}

		res, err := Dispatch(nav, req)
		if err != nil {
			log.Printf("Control command rejected: %v", err)
		}
		if !ack {
			continue
		}
		var reply any = res
		if err != nil {
			reply = map[string]string{"error": err.Error()}
		}
		if err := conn.WriteJSON(reply); err != nil {
			return err
		}
	}
}
