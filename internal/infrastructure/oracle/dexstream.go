// Package oracle implements the price oracle against a DEX screener
// style feed: a public websocket stream for live marks with a REST
// fallback for cold lookups.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pingInterval = 20 * time.Second
	readTimeout  = 60 * time.Second
)

type priceMessage struct {
	Topic string `json:"topic"`
	Data  struct {
		Token string  `json:"token"`
		Price float64 `json:"price"`
	} `json:"data"`
}

type restPriceResponse struct {
	Token string  `json:"token"`
	Price float64 `json:"price"`
}

// DexStream caches the latest mark price per token from a websocket
// stream. Price() serves from the cache and degrades to a REST lookup
// when a token has no streamed price yet.
type DexStream struct {
	restURL string
	wsURL   string
	client  *http.Client
	logger  *zap.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	prices   map[string]float64
	updated  map[string]time.Time
	topics   map[string]bool
	stopOnce sync.Once
	done     chan struct{}
}

func NewDexStream(restURL, wsURL string, logger *zap.Logger) *DexStream {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DexStream{
		restURL: restURL,
		wsURL:   wsURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
		prices:  make(map[string]float64),
		updated: make(map[string]time.Time),
		topics:  make(map[string]bool),
		done:    make(chan struct{}),
	}
}

// Connect dials the stream and starts the read and ping loops. Dial
// failures are retried with exponential backoff until ctx is done.
func (d *DexStream) Connect(ctx context.Context) error {
	conn, err := d.dial(ctx)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.conn = conn
	d.mu.Unlock()

	go d.readLoop(ctx)
	go d.pingLoop(ctx)
	return nil
}

func (d *DexStream) dial(ctx context.Context) (*websocket.Conn, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = 30 * time.Second

	notify := func(err error, wait time.Duration) {
		d.logger.Warn("price stream dial failed, retrying",
			zap.Error(err), zap.Duration("backoff", wait))
	}

	operation := func() (*websocket.Conn, error) {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, d.wsURL, nil)
		return conn, err
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithNotify(notify))
}

// Subscribe registers tokens on the stream. Topics are replayed after
// every reconnect.
func (d *DexStream) Subscribe(tokens []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	args := make([]string, 0, len(tokens))
	for _, token := range tokens {
		d.topics[token] = true
		args = append(args, "price."+token)
	}
	if d.conn == nil || len(args) == 0 {
		return nil
	}
	return d.conn.WriteJSON(map[string]interface{}{
		"op":   "subscribe",
		"args": args,
	})
}

func (d *DexStream) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			return
		default:
		}

		d.mu.Lock()
		conn := d.conn
		d.mu.Unlock()
		if conn == nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			d.logger.Warn("price stream read failed, reconnecting", zap.Error(err))
			conn.Close()

			newConn, derr := d.dial(ctx)
			if derr != nil {
				d.logger.Error("price stream reconnect failed", zap.Error(derr))
				return
			}
			d.mu.Lock()
			d.conn = newConn
			tokens := make([]string, 0, len(d.topics))
			for token := range d.topics {
				tokens = append(tokens, token)
			}
			d.mu.Unlock()
			if err := d.Subscribe(tokens); err != nil {
				d.logger.Warn("resubscribe failed", zap.Error(err))
			}
			continue
		}

		var msg priceMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Data.Token == "" || msg.Data.Price <= 0 {
			continue
		}

		d.mu.Lock()
		d.prices[msg.Data.Token] = msg.Data.Price
		d.updated[msg.Data.Token] = time.Now()
		d.mu.Unlock()
	}
}

func (d *DexStream) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			return
		case <-ticker.C:
			d.mu.Lock()
			conn := d.conn
			d.mu.Unlock()
			if conn == nil {
				return
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				d.logger.Debug("ping failed", zap.Error(err))
			}
		}
	}
}

// Price returns the latest streamed mark, falling back to REST when
// the cache has nothing fresh. Errors mean "no update this tick" to
// the caller.
func (d *DexStream) Price(ctx context.Context, token string) (float64, error) {
	d.mu.Lock()
	price, ok := d.prices[token]
	fresh := ok && time.Since(d.updated[token]) < readTimeout
	d.mu.Unlock()
	if fresh {
		return price, nil
	}
	return d.fetchREST(ctx, token)
}

func (d *DexStream) fetchREST(ctx context.Context, token string) (float64, error) {
	url := fmt.Sprintf("%s/v1/price?token=%s", d.restURL, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("price lookup for %s: status %d", token, resp.StatusCode)
	}

	var out restPriceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	if out.Price <= 0 {
		return 0, fmt.Errorf("no price for %s", token)
	}

	d.mu.Lock()
	d.prices[token] = out.Price
	d.updated[token] = time.Now()
	d.mu.Unlock()
	return out.Price, nil
}

// Close tears the stream down.
func (d *DexStream) Close() {
	d.stopOnce.Do(func() {
		close(d.done)
		d.mu.Lock()
		if d.conn != nil {
			d.conn.Close()
		}
		d.mu.Unlock()
	})
}
