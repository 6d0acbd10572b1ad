// Package maxchat is the boundary to the MAX messaging platform: a
// websocket session that delivers chat events to a registered handler and
// answers synchronous user lookups. The rest of the relay only sees
// domain.InboundMessage and domain.UserDirectory.
package maxchat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"maxgram/internal/domain"

	"github.com/gorilla/websocket"
)

const (
	// DefaultGatewayURL is the MAX web gateway endpoint.
	DefaultGatewayURL = "wss://ws-api.oneme.ru/websocket"

	protocolVersion = 11

	opcodeAuth        = 19
	opcodeContactInfo = 32
	opcodeMessage     = 128

	lookupTimeout  = 10 * time.Second
	reconnectDelay = 3 * time.Second
)

// frame is the MAX gateway envelope. Requests and events share it; replies
// are correlated by seq.
type frame struct {
	Ver     int             `json:"ver"`
	Cmd     int             `json:"cmd"`
	Seq     int64           `json:"seq"`
	Opcode  int             `json:"opcode"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageHandler receives one inbound chat event. Invoked on its own
// goroutine so handlers may call back into LookupUser.
type MessageHandler func(ctx context.Context, msg domain.InboundMessage)

// Config configures the MAX client.
type Config struct {
	URL    string
	Token  string
	Logger *slog.Logger
}

// Client maintains the gateway session. It implements domain.UserDirectory.
type Client struct {
	url    string
	token  string
	logger *slog.Logger

	handler MessageHandler

	writeMu sync.Mutex
	conn    *websocket.Conn

	seqMu   sync.Mutex
	seq     int64
	pending map[int64]chan json.RawMessage
}

func New(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultGatewayURL
	}
	return &Client{
		url:     cfg.URL,
		token:   cfg.Token,
		logger:  cfg.Logger,
		pending: make(map[int64]chan json.RawMessage),
	}
}

// OnMessage registers the inbound event handler. Must be called before Run.
func (c *Client) OnMessage(h MessageHandler) {
	c.handler = h
}

// Run connects to the gateway and reads events until the context is
// cancelled, reconnecting with a short delay after any session error.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := c.session(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("max session ended, reconnecting", "err", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (c *Client) session(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial max gateway: %w", err)
	}
	c.writeMu.Lock()
	c.conn = conn
	c.writeMu.Unlock()
	defer conn.Close()

	if err := c.send(opcodeAuth, map[string]any{"token": c.token}); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	c.logger.Info("max gateway connected", "url", c.url)

	// Close the socket when the context goes away so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.logger.Warn("malformed gateway frame", "err", err)
			continue
		}
		c.dispatch(ctx, f)
	}
}

func (c *Client) dispatch(ctx context.Context, f frame) {
	if ch := c.takePending(f.Seq); ch != nil {
		ch <- f.Payload
		return
	}
	if f.Opcode != opcodeMessage {
		return
	}
	msg, err := parseMessageEvent(f.Payload)
	if err != nil {
		c.logger.Warn("unparseable message event", "err", err)
		return
	}
	if c.handler != nil {
		// Own goroutine per event: the handler blocks on outbound HTTP and
		// may call LookupUser, which needs the read loop running.
		go c.handler(ctx, msg)
	}
}

// LookupUser asks the gateway for a user's profile. Failures are returned
// to the caller, which must degrade to a default name.
func (c *Client) LookupUser(ctx context.Context, id int64) (domain.UserInfo, error) {
	seq, ch := c.addPending()
	defer c.dropPending(seq)

	if err := c.sendSeq(seq, opcodeContactInfo, map[string]any{"contactIds": []int64{id}}); err != nil {
		return domain.UserInfo{}, err
	}

	timer := time.NewTimer(lookupTimeout)
	defer timer.Stop()
	select {
	case payload := <-ch:
		return parseContactInfo(payload, id)
	case <-timer.C:
		return domain.UserInfo{}, errors.New("contact lookup timed out")
	case <-ctx.Done():
		return domain.UserInfo{}, ctx.Err()
	}
}

func (c *Client) send(opcode int, payload any) error {
	seq, _ := c.addPendingSeqOnly()
	return c.sendSeq(seq, opcode, payload)
}

func (c *Client) sendSeq(seq int64, opcode int, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f := frame{Ver: protocolVersion, Cmd: 0, Seq: seq, Opcode: opcode, Payload: body}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return errors.New("not connected")
	}
	return c.conn.WriteJSON(f)
}

func (c *Client) addPending() (int64, chan json.RawMessage) {
	c.seqMu.Lock()
	defer c.seqMu.Unlock()
	c.seq++
	ch := make(chan json.RawMessage, 1)
	c.pending[c.seq] = ch
	return c.seq, ch
}

func (c *Client) addPendingSeqOnly() (int64, chan json.RawMessage) {
	c.seqMu.Lock()
	defer c.seqMu.Unlock()
	c.seq++
	return c.seq, nil
}

func (c *Client) takePending(seq int64) chan json.RawMessage {
	c.seqMu.Lock()
	defer c.seqMu.Unlock()
	ch, ok := c.pending[seq]
	if ok {
		delete(c.pending, seq)
	}
	return ch
}

func (c *Client) dropPending(seq int64) {
	c.seqMu.Lock()
	defer c.seqMu.Unlock()
	delete(c.pending, seq)
}
