// Package stream keeps a websocket connection to the gateway open and feeds
// its events, in order, to a Handler.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-ticker/pkg/models"
	"github.com/shubham-shewale/stock-ticker/pkg/protocol"
)

type Handler interface {
	OnSnapshot(ctx context.Context, list models.Snapshot)
	OnUpdate(ctx context.Context, list models.Snapshot)
	SetConnected(connected bool)
}

type Client struct {
	url        string
	dialer     *websocket.Dialer
	handler    Handler
	logger     *zap.Logger
	retryDelay time.Duration

	mu       sync.Mutex
	conn     *websocket.Conn
	reqSeq   int
	connects int
}

func New(url string, handler Handler, logger *zap.Logger, retryDelay time.Duration) *Client {
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}
	return &Client{
		url:        url,
		dialer:     websocket.DefaultDialer,
		handler:    handler,
		logger:     logger,
		retryDelay: retryDelay,
	}
}

// Run connects and reconnects until ctx is done. Every connection after the
// first sends one refresh; updates missed while disconnected are not replayed.
func (c *Client) Run(ctx context.Context) {
	for {
		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("Connect failed, retrying", zap.String("url", c.url), zap.Duration("delay", c.retryDelay), zap.Error(err))
			if !sleep(ctx, c.retryDelay) {
				return
			}
			continue
		}

		c.serve(ctx, conn)

		if ctx.Err() != nil {
			return
		}
		if !sleep(ctx, c.retryDelay) {
			return
		}
	}
}

func (c *Client) serve(ctx context.Context, conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.connects++
	reconnect := c.connects > 1
	c.mu.Unlock()

	c.logger.Info("Connected", zap.String("url", c.url), zap.Bool("reconnect", reconnect))
	c.handler.SetConnected(true)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	if reconnect {
		if err := c.Refresh(); err != nil {
			c.logger.Warn("Refresh after reconnect failed", zap.Error(err))
		}
	}

	c.readLoop(ctx, conn)
	close(done)

	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()
	conn.Close()

	c.handler.SetConnected(false)
	c.logger.Info("Disconnected", zap.String("url", c.url))
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("Read failed", zap.Error(err))
			}
			return
		}

		var ev protocol.Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			c.logger.Warn("Dropping malformed event", zap.Error(err))
			continue
		}

		switch ev.Type {
		case protocol.EventSnapshot:
			c.handler.OnSnapshot(ctx, ev.Data)
		case protocol.EventUpdate:
			c.handler.OnUpdate(ctx, ev.Data)
		case protocol.EventError:
			c.logger.Warn("Server error", zap.String("id", ev.ID), zap.String("message", ev.Message))
		default:
			c.logger.Debug("Ignoring event", zap.String("type", ev.Type))
		}
	}
}

var ErrNotConnected = errors.New("not connected")

// Refresh asks the server for a fresh snapshot. It does nothing while disconnected.
func (c *Client) Refresh() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	c.reqSeq++
	req := protocol.WSRequest{Action: protocol.ActionRefresh, ID: "refresh-" + strconv.Itoa(c.reqSeq)}
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteJSON(req)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
