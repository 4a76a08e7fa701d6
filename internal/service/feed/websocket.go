package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"QuantCore/internal/domain/models"
	drepo "QuantCore/internal/domain/repository"
	"QuantCore/pkg/logger"
)

// WSClient implements a MarketStream over a quote-feed WebSocket. The feed
// delivers JSON tick frames; anything else on the wire is ignored.
type WSClient struct {
	url            string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	pinging   bool
}

// NewWSClient creates a WebSocket MarketStream.
func NewWSClient(url string, symbols []string, reconnectDelay, pingInterval time.Duration, log *logger.Logger) drepo.MarketStream {
	if log == nil {
		log = logger.Nop()
	}
	if reconnectDelay <= 0 {
		reconnectDelay = 2 * time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 15 * time.Second
	}
	return &WSClient{
		url:            url,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log,
	}
}

// Connect establishes the WebSocket connection.
func (c *WSClient) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("feed connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.log.Info("feed connected", logger.String("url", c.url))
	return nil
}

// Subscribe subscribes to configured symbols.
func (c *WSClient) Subscribe(_ context.Context) error {
	c.mu.Lock()
	conn, ok := c.conn, c.connected
	c.mu.Unlock()
	if conn == nil || !ok {
		return fmt.Errorf("feed not connected")
	}
	for _, s := range c.symbols {
		msg := map[string]string{"type": "subscribe", "symbol": s}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
	}
	c.log.Info("feed subscribed", logger.Strings("symbols", c.symbols))
	return nil
}

type wsTick struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	B float64 `json:"b"`
	A float64 `json:"a"`
	T int64   `json:"t"` // ms
}

type wsFrame struct {
	Type string   `json:"type"`
	Data []wsTick `json:"data"`
}

// Read streams observations and errors. The channels are buffered and close
// when the read session ends; the consumer re-acquires fresh ones after a
// reconnect. A slow consumer drops ticks rather than stalling the socket.
func (c *WSClient) Read(ctx context.Context) (<-chan *models.PricePoint, <-chan error) {
	points := make(chan *models.PricePoint, 1024)
	errs := make(chan error, 1)

	c.mu.Lock()
	if !c.pinging {
		c.pinging = true
		go c.pingLoop(ctx)
	}
	c.mu.Unlock()

	go func() {
		defer close(points)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()
			if conn == nil {
				errs <- fmt.Errorf("feed conn nil")
				return
			}

			_, b, err := conn.ReadMessage()
			if err != nil {
				errs <- fmt.Errorf("feed read: %w", err)
				return
			}
			var frame wsFrame
			if err := json.Unmarshal(b, &frame); err != nil {
				// ignore non-tick frames
				continue
			}
			if frame.Type != "tick" && frame.Type != "trade" {
				continue
			}
			for _, d := range frame.Data {
				p := &models.PricePoint{
					Symbol:    d.S,
					Price:     d.P,
					Volume:    d.V,
					Bid:       d.B,
					Ask:       d.A,
					Timestamp: time.UnixMilli(d.T),
				}
				select {
				case points <- p:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return points, errs
}

func (c *WSClient) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()
			if conn != nil {
				_ = conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}
}

// Reconnect closes and reconnects.
func (c *WSClient) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *WSClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
