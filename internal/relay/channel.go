package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/atomicswap/htlcengine/internal/swaperrors"
	"github.com/atomicswap/htlcengine/pkg/logging"
)

// Config tunes retry/backoff behavior for delivery over the single
// trusted relay connection (gorilla/websocket is the only transport,
// since peer discovery is out of scope).
type Config struct {
	InitialRetryInterval time.Duration
	MaxRetryInterval     time.Duration
	BackoffMultiplier    float64
	MaxRetries           int
	DialTimeout          time.Duration
}

// DefaultConfig returns sane retry/backoff defaults for a relay connection.
func DefaultConfig() Config {
	return Config{
		InitialRetryInterval: 10 * time.Second,
		MaxRetryInterval:     10 * time.Minute,
		BackoffMultiplier:    2.0,
		MaxRetries:           50,
		DialTimeout:          15 * time.Second,
	}
}

func (c Config) backoff(attempt int) time.Duration {
	d := c.InitialRetryInterval
	for i := 0; i < attempt; i++ {
		d = time.Duration(float64(d) * c.BackoffMultiplier)
		if d > c.MaxRetryInterval {
			return c.MaxRetryInterval
		}
	}
	return d
}

// Channel is a client connection to the trusted swap-message relay.
// Send* methods don't need a persist-then-send outbox (the relay itself
// is the durable queue), but delivery is still retried with exponential
// backoff on transient failure.
type Channel struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	url    string
	cfg    Config
	log    *logging.Logger
	subs   []chan Envelope
	closed bool
}

// Dial connects to the relay at url.
func Dial(ctx context.Context, url string, cfg Config) (*Channel, error) {
	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, url, nil)
	if err != nil {
		return nil, swaperrors.New(swaperrors.RequestError, "relay.Dial", err)
	}

	return &Channel{
		conn: conn,
		url:  url,
		cfg:  cfg,
		log:  logging.GetDefault().Component("relay"),
	}, nil
}

// Subscribe returns a channel of every Envelope received from the relay.
// The returned channel is closed when the Channel is closed.
func (c *Channel) Subscribe() <-chan Envelope {
	ch := make(chan Envelope, 32)
	c.mu.Lock()
	c.subs = append(c.subs, ch)
	c.mu.Unlock()
	return ch
}

// Listen reads incoming envelopes until ctx is canceled or the connection
// drops, fanning each one out to every Subscribe channel. Callers run
// this in its own goroutine.
func (c *Channel) Listen(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return swaperrors.New(swaperrors.RequestError, "relay.Listen", err)
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.log.Warn("dropping malformed relay message", "error", err)
			continue
		}

		c.mu.Lock()
		subs := append([]chan Envelope(nil), c.subs...)
		c.mu.Unlock()
		for _, sub := range subs {
			select {
			case sub <- env:
			default:
				c.log.Warn("subscriber channel full, dropping message", "message_id", env.MessageID)
			}
		}
	}
}

// send writes env to the wire, retrying with exponential backoff on
// transient failure up to cfg.MaxRetries.
func (c *Channel) send(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return swaperrors.New(swaperrors.InternalError, "relay.send", err)
	}

	var lastErr error
	for attempt := 0; c.cfg.MaxRetries <= 0 || attempt <= c.cfg.MaxRetries; attempt++ {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if err := conn.WriteMessage(websocket.TextMessage, data); err == nil {
			return nil
		} else {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			return swaperrors.New(swaperrors.RequestError, "relay.send", ctx.Err())
		case <-time.After(c.cfg.backoff(attempt)):
		}
	}
	return swaperrors.New(swaperrors.MaxAttemptsCountReached, "relay.send", lastErr)
}

// SendPayment sends a SwapPayment envelope.
func (c *Channel) SendPayment(ctx context.Context, msg SwapPayment) error {
	return c.send(ctx, NewEnvelope(TypeSwapPayment, msg))
}

// SendSecret sends a SwapSecret envelope.
func (c *Channel) SendSecret(ctx context.Context, msg SwapSecret) error {
	return c.send(ctx, NewEnvelope(TypeSwapSecret, msg))
}

// SendProofOfPossession sends a ProofOfPossession envelope.
func (c *Channel) SendProofOfPossession(ctx context.Context, msg ProofOfPossession) error {
	return c.send(ctx, NewEnvelope(TypeProofOfPossession, msg))
}

// Close closes the underlying connection and every subscriber channel.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for _, sub := range c.subs {
		close(sub)
	}
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("relay: close: %w", err)
	}
	return nil
}
