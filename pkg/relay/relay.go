package relay

import (
	"SnapSight/internal/api/media"
	"SnapSight/internal/entity"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/net/context"
)

// IRelay is the capture client's connection to the relay: the media socket
// for artifact dispatch plus the broker connectivity probe.
type IRelay interface {
	Send(ctx context.Context, artifact entity.CapturedArtifact) (entity.PublishAck, error)
	Connected(ctx context.Context) bool
	Close()
}

type socketAck struct {
	Published bool   `json:"published"`
	Topic     string `json:"topic"`
	Key       string `json:"key"`
	Error     string `json:"error"`
}

type relayClient struct {
	mu           sync.Mutex
	conn         *websocket.Conn
	httpClient   *http.Client
	wsURL        string
	statusURL    string
	writeTimeout time.Duration
	closed       bool
}

func New() IRelay {
	wsURL := os.Getenv("RELAY_WS_URL")
	if wsURL == "" {
		wsURL = "ws://localhost:3000/api/ws"
	}

	httpURL := os.Getenv("RELAY_HTTP_URL")
	if httpURL == "" {
		httpURL = "http://localhost:3000"
	}

	return &relayClient{
		httpClient:   &http.Client{Timeout: 5 * time.Second},
		wsURL:        wsURL,
		statusURL:    httpURL + "/api/status",
		writeTimeout: 10 * time.Second,
	}
}

// Send writes one envelope over the media socket and waits for the relay's
// ack. Calls are serialized; envelopes leave in call order.
func (c *relayClient) Send(ctx context.Context, artifact entity.CapturedArtifact) (entity.PublishAck, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return entity.PublishAck{}, fmt.Errorf("relay client is closed")
	}

	if err := c.ensureConnLocked(); err != nil {
		return entity.PublishAck{}, err
	}

	date := artifact.Date
	if date == "" {
		date = time.UnixMilli(artifact.CapturedAt).UTC().Format(time.RFC3339Nano)
	}

	payload := base64.StdEncoding.EncodeToString(artifact.Bytes)
	msg := media.SocketMessage{
		Type:   string(artifact.Kind),
		UserID: artifact.UserID,
		Date:   date,
		Time:   artifact.CapturedAt,
	}
	if artifact.Kind == entity.ArtifactVideo {
		msg.Video = payload
	} else {
		msg.Image = payload
	}

	data, err := jsoniter.Marshal(msg)
	if err != nil {
		return entity.PublishAck{}, err
	}

	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}

	conn := c.conn
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return entity.PublishAck{}, err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.dropConnLocked(conn)
		return entity.PublishAck{}, fmt.Errorf("write to relay: %w", err)
	}

	if err := conn.SetReadDeadline(deadline); err != nil {
		return entity.PublishAck{}, err
	}
	_, response, err := conn.ReadMessage()
	if err != nil {
		c.dropConnLocked(conn)
		return entity.PublishAck{}, fmt.Errorf("read relay ack: %w", err)
	}

	var ack socketAck
	if err := jsoniter.Unmarshal(response, &ack); err != nil {
		return entity.PublishAck{}, err
	}
	if ack.Error != "" {
		return entity.PublishAck{}, fmt.Errorf("relay rejected artifact: %s", ack.Error)
	}

	return entity.PublishAck{Topic: ack.Topic, Key: ack.Key}, nil
}

// Connected polls the relay's broker status endpoint.
func (c *relayClient) Connected(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.statusURL, nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("Relay status probe failed: %v", err)
		return false
	}
	defer resp.Body.Close()

	var status struct {
		Broker string `json:"broker"`
	}
	if err := jsoniter.NewDecoder(resp.Body).Decode(&status); err != nil {
		return false
	}
	return status.Broker == "connected"
}

func (c *relayClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *relayClient) ensureConnLocked() error {
	if c.conn != nil {
		return nil
	}

	log.Printf("Connecting to relay at %s", c.wsURL)

	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(c.wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.wsURL, err)
	}

	c.conn = conn
	return nil
}

func (c *relayClient) dropConnLocked(conn *websocket.Conn) {
	conn.Close()
	if c.conn == conn {
		c.conn = nil
	}
}
