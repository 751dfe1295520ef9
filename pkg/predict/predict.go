package predict

import (
	"SnapSight/internal/entity"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// IPredict is the asynchronous inference-result channel. Detection results
// arrive out-of-band on Results; correlation with the image that produced
// them is the caller's concern.
type IPredict interface {
	Results() <-chan entity.PredictionResult
	IsConnected() bool
	Reconnect() error
	Close()
}

type predictClient struct {
	conn         *websocket.Conn
	results      chan entity.PredictionResult
	mu           sync.Mutex
	pingInterval time.Duration
	writeTimeout time.Duration
	closed       bool
}

func NewPredictionClient() IPredict {
	client := &predictClient{
		results:      make(chan entity.PredictionResult),
		pingInterval: 30 * time.Second,
		writeTimeout: 5 * time.Second,
	}

	go client.connectInBackground()

	return client
}

func (c *predictClient) connectInBackground() {
	if err := c.Reconnect(); err != nil {
		log.Printf("Initial connection to inference service failed: %v. Will retry on demand.", err)
	} else {
		log.Printf("Successfully connected to inference service")
	}
}

func (c *predictClient) Results() <-chan entity.PredictionResult {
	return c.results
}

func (c *predictClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *predictClient) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("prediction client is closed")
	}

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	url := os.Getenv("AI_PREDICTION_URL")
	if url == "" {
		url = "ws://localhost:8000/api/v1/predictions/ws"
	}

	log.Printf("Connecting to inference service at %s", url)

	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout))
		if err != nil {
			log.Printf("Error sending pong: %v", err)
		}
		return nil
	})

	c.conn = conn

	go c.readLoop(conn)
	go c.keepAlive()

	return nil
}

func (c *predictClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// readLoop decodes pushed results and forwards them until the connection
// drops. A payload that does not decode is logged and skipped.
func (c *predictClient) readLoop(conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()
			conn.Close()
			log.Printf("Inference result stream closed: %v", err)
			return
		}

		var result entity.PredictionResult
		if err := json.Unmarshal(message, &result); err != nil {
			log.Printf("Error unmarshaling prediction result: %v", err)
			continue
		}

		log.Printf("Received prediction result with %d detections", len(result.Detections))
		c.results <- result
	}
}

func (c *predictClient) keepAlive() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		conn := c.conn
		if conn == nil {
			c.mu.Unlock()
			return
		}

		err := conn.WriteControl(
			websocket.PingMessage,
			[]byte{},
			time.Now().Add(c.writeTimeout),
		)

		if err != nil {
			log.Printf("Ping failed for inference service, marking connection as dead: %v", err)
			c.conn = nil
			conn.Close()
			c.mu.Unlock()
			return
		}

		c.mu.Unlock()
	}
}
