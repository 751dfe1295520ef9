package mediaHandler

import (
	"SnapSight/internal/api/media"
	contextPkg "SnapSight/pkg/context"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/net/context"
)

// handleMediaSocket is the capture-client ingress: each text frame is one
// envelope-shaped message forwarded through the transport bridge. Malformed
// messages are logged and skipped; the connection stays up.
func (h *MediaHandler) handleMediaSocket(c *websocket.Conn) {
	connID := uuid.NewString()
	h.log.Infof("Media socket client connected: %s", connID)
	defer h.log.Infof("Media socket client disconnected: %s", connID)

	c.SetPingHandler(func(data string) error {
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			h.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	maxReadTimeout := 60 * time.Second

	for {
		if err := c.SetReadDeadline(time.Now().Add(maxReadTimeout)); err != nil {
			h.log.Errorf("Error setting read deadline: %v", err)
			break
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Errorf("Media socket error: %v", err)
			} else {
				h.log.Info("Media socket connection closed")
			}
			break
		}

		if messageType != websocket.TextMessage {
			h.log.Warnf("Received unexpected message type: %d", messageType)
			continue
		}

		var msg media.SocketMessage
		if err := jsoniter.Unmarshal(message, &msg); err != nil {
			h.log.Errorf("Error decoding media socket message: %v", err)
			continue
		}

		ctx, cancel := context.WithTimeout(contextPkg.WithRequestID(context.Background(), connID), 30*time.Second)
		ack, err := h.mediaService.Forward(ctx, msg)
		cancel()
		if err != nil {
			// Best-effort delivery: the sender is told, nothing is retried.
			if writeErr := c.WriteJSON(map[string]string{"error": err.Error()}); writeErr != nil {
				h.log.Errorf("Error sending error response: %v", writeErr)
				break
			}
			continue
		}

		if err := c.WriteJSON(map[string]interface{}{
			"published": true,
			"topic":     ack.Topic,
			"key":       ack.Key,
		}); err != nil {
			h.log.Errorf("Error writing socket ack: %v", err)
			break
		}
	}
}
