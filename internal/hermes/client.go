// Package hermes carries chat host hook events over NATS.
package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Hook names published by the chat host.
const (
	HookMessageReceived  = "message_received"
	HookAgentEnd         = "agent_end"
	HookBeforeAgentStart = "before_agent_start"
	EventRegistered      = "registered"
)

// Subject joins the configured prefix and a hook name.
func Subject(prefix, hook string) string {
	if prefix == "" {
		return hook
	}
	return prefix + "." + hook
}

// Handler processes a fire-and-forget hook event.
type Handler func(subject string, data []byte)

// ReplyHandler processes a hook request and returns the reply body, which is
// encoded as JSON.
type ReplyHandler func(subject string, data []byte) any

// Options configures the NATS connection.
type Options struct {
	URL   string
	Token string
	// Name identifies the connection on the server. Defaults to "lightrag-memory".
	Name string
}

// Client is a NATS connection that delivers hook events to handlers.
type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	closed chan struct{}
	logger *slog.Logger
}

// Connect dials NATS. The connection retries in the background, so a server
// that is not up yet does not fail startup.
func Connect(o Options, logger *slog.Logger) (*Client, error) {
	if o.Name == "" {
		o.Name = "lightrag-memory"
	}
	c := &Client{closed: make(chan struct{}), logger: logger}

	opts := []nats.Option{
		nats.Name(o.Name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			close(c.closed)
		}),
	}
	if o.Token != "" {
		opts = append(opts, nats.Token(o.Token))
	}

	nc, err := nats.Connect(o.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	c.conn = nc
	return c, nil
}

// Publish sends data encoded as JSON.
func (c *Client) Publish(subject string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", subject, err)
	}
	return c.conn.Publish(subject, body)
}

// Subscribe delivers fire-and-forget hook events to handler.
func (c *Client) Subscribe(subject string, handler Handler) error {
	return c.subscribe(subject, "subscribed", func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
}

// Respond serves request/reply hooks. Messages without a reply subject are
// handled and the result dropped.
func (c *Client) Respond(subject string, handler ReplyHandler) error {
	return c.subscribe(subject, "responding", func(msg *nats.Msg) {
		reply := handler(msg.Subject, msg.Data)
		if msg.Reply == "" {
			return
		}
		body, err := json.Marshal(reply)
		if err != nil {
			c.logger.Error("marshal reply", "subject", msg.Subject, "error", err)
			return
		}
		if err := msg.Respond(body); err != nil {
			c.logger.Warn("reply failed", "subject", msg.Subject, "error", err)
		}
	})
}

func (c *Client) subscribe(subject, mode string, cb nats.MsgHandler) error {
	sub, err := c.conn.Subscribe(subject, cb)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info(mode, "subject", subject)
	return nil
}

// Drain stops new deliveries, lets in-flight handlers finish and closes the
// connection. It returns early with ctx's error, closing the connection
// without waiting.
func (c *Client) Drain(ctx context.Context) error {
	if err := c.conn.Drain(); err != nil {
		return fmt.Errorf("nats drain: %w", err)
	}
	select {
	case <-c.closed:
		return nil
	case <-ctx.Done():
		c.conn.Close()
		return ctx.Err()
	}
}

// Close unsubscribes and closes the connection. It is a no-op after Drain.
func (c *Client) Close() {
	if c.conn.IsClosed() {
		return
	}
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
