package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/linguaai/linguaclient/internal/client/models"
	"github.com/linguaai/linguaclient/internal/common"
)

const heartbeatInterval = 25 * time.Second

// realtimeMessage is the phoenix-channel frame used by the provider's
// realtime endpoint, both directions.
type realtimeMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref"`
}

// changePayload is the payload of a postgres row-change event.
type changePayload struct {
	Record    *models.Notification `json:"record"`
	OldRecord *models.Notification `json:"old_record"`
}

// SubscribeNotifications opens the realtime websocket, joins the channel
// for the user's notification rows, and invokes handler for every change
// until ctx is canceled. Returns the error that terminated the stream;
// ctx cancellation returns nil.
func (c *HTTPClient) SubscribeNotifications(ctx context.Context, userID string, handler func(models.NotificationChange)) error {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) +
		"/realtime/v1/websocket?vsn=1.0.0&apikey=" + c.anonKey

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return mapTransportError(err)
	}
	defer conn.Close()

	topic := "realtime:public:notifications:user_id=eq." + userID
	join := realtimeMessage{Topic: topic, Event: "phx_join", Payload: json.RawMessage(`{}`), Ref: uuid.NewString()}
	if err := conn.WriteJSON(join); err != nil {
		return mapTransportError(err)
	}

	// The reader goroutine owns conn reads; writes (heartbeats) stay on
	// this goroutine so the connection never sees concurrent writers.
	msgs := make(chan realtimeMessage)
	readErr := make(chan error, 1)
	go func() {
		for {
			var m realtimeMessage
			if err := conn.ReadJSON(&m); err != nil {
				readErr <- err
				return
			}
			select {
			case msgs <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil

		case <-ticker.C:
			hb := realtimeMessage{Topic: "phoenix", Event: "heartbeat", Payload: json.RawMessage(`{}`), Ref: uuid.NewString()}
			if err := conn.WriteJSON(hb); err != nil {
				return mapTransportError(err)
			}

		case err := <-readErr:
			return fmt.Errorf("%w: realtime stream closed: %v", common.ErrNetwork, err)

		case m := <-msgs:
			if m.Topic != topic {
				continue
			}
			var et models.ChangeEventType
			switch m.Event {
			case "INSERT":
				et = models.ChangeInsert
			case "UPDATE":
				et = models.ChangeUpdate
			case "DELETE":
				et = models.ChangeDelete
			default:
				continue
			}
			var p changePayload
			if err := json.Unmarshal(m.Payload, &p); err != nil {
				c.log.Warn(ctx, "bad realtime payload", "error", err)
				continue
			}
			handler(models.NotificationChange{Type: et, New: p.Record, Old: p.OldRecord})
		}
	}
}
