package chathub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"linku/backend/internal/apperr"
	"linku/backend/internal/models"
	"linku/backend/internal/platform/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendTimeout    = 10 * time.Second
)

// WebSocketClient is one authenticated /ws session. Every inbound frame is
// attributed to UID, which was verified before the upgrade.
type WebSocketClient struct {
	UID       uint
	SessionID string
	Conn      *websocket.Conn
	Bus       *Bus
	Chat      ChatService

	sub     *Subscriber
	handles map[string]Handle // owned by readPump
	replies chan models.OutboundFrame
	done    chan struct{}
	once    sync.Once
	ctx     context.Context
	cancel  context.CancelFunc
	log     *logger.Logger
}

func NewWebSocketClient(uid uint, conn *websocket.Conn, bus *Bus, chat ChatService, buffer int, log *logger.Logger) *WebSocketClient {
	if log == nil {
		log = logger.NewNop()
	}
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	return &WebSocketClient{
		UID:       uid,
		SessionID: id,
		Conn:      conn,
		Bus:       bus,
		Chat:      chat,
		sub:       NewSubscriber(id, buffer),
		handles:   make(map[string]Handle),
		replies:   make(chan models.OutboundFrame, 16),
		done:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		log:       log.With("component", "ws", "session", id, "uid", uid),
	}
}

func (c *WebSocketClient) GetUID() uint { return c.UID }

// Done is closed once the session has shut down.
func (c *WebSocketClient) Done() <-chan struct{} { return c.done }

// Run starts the pumps.
func (c *WebSocketClient) Run() {
	c.log.Debug("session opened")
	go c.writePump()
	go c.readPump()
}

// Close invalidates every subscription of the session and closes the socket.
func (c *WebSocketClient) Close() {
	c.once.Do(func() {
		c.cancel()
		c.Bus.Remove(c.sub)
		close(c.done)
		_ = c.Conn.Close()
		c.log.Debug("session closed", "dropped_events", c.sub.Dropped())
	})
}

func (c *WebSocketClient) readPump() {
	defer c.Close()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Warn("websocket read failed", "error", err)
			}
			return
		}

		var frame models.InboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.replyError(apperr.ErrInvalidInput.WithMessage("malformed frame"))
			continue
		}
		c.handle(frame)
	}
}

func (c *WebSocketClient) handle(frame models.InboundFrame) {
	switch frame.Type {
	case models.FrameSubscribe:
		c.subscribe(frame.Topic)
	case models.FrameUnsubscribe:
		if h, ok := c.handles[frame.Topic]; ok {
			c.Bus.Unsubscribe(h)
			delete(c.handles, frame.Topic)
		}
		c.reply(models.OutboundFrame{Type: models.FrameUnsubscribed, Topic: frame.Topic})
	case models.FrameChatSend:
		c.send(frame)
	default:
		c.replyError(apperr.ErrInvalidInput.WithMessage("unknown frame type %q", frame.Type))
	}
}

func (c *WebSocketClient) subscribe(topic string) {
	roomID, ok := ParseRoomTopic(topic)
	if !ok {
		c.replyError(apperr.ErrInvalidInput.WithMessage("unknown topic %q", topic))
		return
	}
	if _, ok := c.handles[topic]; !ok {
		ctx, cancel := context.WithTimeout(c.ctx, sendTimeout)
		err := c.Chat.EnsureParticipant(ctx, c.UID, roomID)
		cancel()
		if err != nil {
			c.replyError(err)
			return
		}
		c.handles[topic] = c.Bus.Subscribe(topic, c.sub)
	}
	c.reply(models.OutboundFrame{Type: models.FrameSubscribed, Topic: topic})
}

func (c *WebSocketClient) send(frame models.InboundFrame) {
	ctx, cancel := context.WithTimeout(c.ctx, sendTimeout)
	defer cancel()
	view, err := c.Chat.SendText(ctx, c.UID, frame.RoomID, frame.ReceiverUID, frame.Content)
	if err != nil {
		c.replyError(err)
		return
	}
	topic := RoomTopic(view.RoomID)
	if _, subscribed := c.handles[topic]; !subscribed {
		// not on the topic, so echo the stored message directly
		c.reply(models.OutboundFrame{Type: models.FrameMessage, Topic: topic, Data: view})
	}
}

func (c *WebSocketClient) replyError(err error) {
	var msg string
	var e *apperr.Error
	if errors.As(err, &e) {
		msg = e.Message
	} else {
		msg = "internal error"
		c.log.Error("stream action failed", "error", err)
	}
	c.reply(models.OutboundFrame{Type: models.FrameError, Code: apperr.CodeOf(err), Message: msg})
}

func (c *WebSocketClient) reply(frame models.OutboundFrame) {
	select {
	case c.replies <- frame:
	case <-c.done:
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case ev, ok := <-c.sub.C():
			if !ok {
				c.writeClose()
				return
			}
			msg := ev.Message
			if err := c.write(models.OutboundFrame{Type: models.FrameMessage, Topic: ev.Topic, Data: &msg}); err != nil {
				return
			}
		case frame := <-c.replies:
			if err := c.write(frame); err != nil {
				return
			}
		case <-c.done:
			c.writeClose()
			return
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WebSocketClient) write(frame models.OutboundFrame) error {
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.Conn.WriteJSON(frame); err != nil {
		c.log.Debug("websocket write failed", "error", err)
		return err
	}
	return nil
}

func (c *WebSocketClient) writeClose() {
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
