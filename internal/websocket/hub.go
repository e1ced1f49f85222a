package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/wicara/domain/entities"
	"github.com/satriahrh/wicara/internal/audio"
	"github.com/satriahrh/wicara/internal/call"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio frames

	// How long the browser gets to answer capture_start with mic_ready.
	micAcquireTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ControllerFactory builds a call controller bound to one client. The client
// serves as both the microphone opener and the update notifier.
type ControllerFactory func(notifier call.Notifier, mic call.MicOpener) *call.Controller

// Hub maintains the set of connected clients.
type Hub struct {
	// Registered clients.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	newController ControllerFactory

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(newController ControllerFactory, logger *zap.Logger) *Hub {
	return &Hub{
		clients:       make(map[string]*Client),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		newController: newController,
		logger:        logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.userID] = client
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("userID", client.userID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.userID]; ok {
				delete(h.clients, client.userID)
				close(client.send)
			}
			h.mu.Unlock()
			// A dropped connection ends any call it was carrying.
			client.controller.EndCall()
			h.logger.Info("Client unregistered", zap.String("userID", client.userID))
		}
	}
}

type WriteData struct {
	// Type is websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between one websocket connection and its call
// controller. It doubles as the controller's microphone source (inbound
// binary frames) and notifier (outbound status, transcript and audio).
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	// Authenticated user for this connection
	userID string

	controller *call.Controller

	logger *zap.Logger

	mu       sync.Mutex
	pipeline *audio.CapturePipeline
	micWait  chan error
}

// HandleWebSocketWithAuth handles websocket requests with a pre-authenticated
// user ID.
func HandleWebSocketWithAuth(hub *Hub, c echo.Context, userID string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan WriteData, 256),
		userID: userID,
		logger: logger,
	}
	client.controller = hub.newController(client, client)

	client.hub.register <- client

	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection to the controller.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.processControlMessage(message)
		case websocket.BinaryMessage:
			c.processAudioFrame(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the controller to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processControlMessage routes a JSON control message from the browser
func (c *Client) processControlMessage(message []byte) {
	msg, err := ParseControlMessage(message)
	if err != nil {
		c.logger.Warn("Invalid control message", zap.Error(err))
		c.sendJSON(CreateErrorMessage("invalid_message", err.Error()))
		return
	}

	switch msg.Type {
	case MessageTypeStartCall:
		// StartCall blocks on microphone acquisition, which is resolved by
		// a later mic_ready message on this same read loop.
		go func() {
			if err := c.controller.StartCall(context.Background()); err != nil {
				c.logger.Warn("Call start failed",
					zap.String("userID", c.userID),
					zap.Error(err))
			}
		}()
	case MessageTypeEndCall:
		c.controller.EndCall()
	case MessageTypeMicReady:
		c.resolveMic(nil)
	case MessageTypeMicDenied:
		reason := msg.Reason
		if reason == "" {
			reason = "microphone permission denied"
		}
		c.resolveMic(errors.New(reason))
	}
}

// processAudioFrame feeds one binary microphone frame into the capture
// pipeline. Frames arriving while no call is active are dropped.
func (c *Client) processAudioFrame(data []byte) {
	c.mu.Lock()
	pipeline := c.pipeline
	c.mu.Unlock()

	if pipeline == nil {
		return
	}
	pipeline.Push(audio.DecodeS16LE(data))
}

// Open implements call.MicOpener: ask the browser to start capturing and
// wait for its permission answer.
func (c *Client) Open(ctx context.Context) (call.MicSource, error) {
	wait := make(chan error, 1)
	c.mu.Lock()
	c.micWait = wait
	c.mu.Unlock()

	c.sendJSON(CreateControlMessage(MessageTypeCaptureStart))

	select {
	case err := <-wait:
		if err != nil {
			return nil, err
		}
		return c, nil
	case <-time.After(micAcquireTimeout):
		return nil, errors.New("timed out waiting for microphone permission")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) resolveMic(err error) {
	c.mu.Lock()
	wait := c.micWait
	c.micWait = nil
	c.mu.Unlock()

	if wait == nil {
		c.logger.Warn("Unexpected microphone answer", zap.String("userID", c.userID))
		return
	}
	wait <- err
}

// Attach implements call.MicSource: subsequent binary frames flow into the
// given pipeline.
func (c *Client) Attach(p *audio.CapturePipeline) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pipeline = p
}

// Close implements call.MicSource: stop routing frames and tell the browser
// to release the microphone.
func (c *Client) Close() error {
	c.mu.Lock()
	c.pipeline = nil
	c.mu.Unlock()

	c.sendJSON(CreateControlMessage(MessageTypeCaptureStop))
	return nil
}

// CallStatusChanged implements call.Notifier
func (c *Client) CallStatusChanged(status entities.CallStatus, errorMessage string) {
	c.sendJSON(CreateCallStatusMessage(status, errorMessage))
}

// TranscriptAppended implements call.Notifier
func (c *Client) TranscriptAppended(msg entities.TranscriptMessage) {
	c.sendJSON(CreateTranscriptMessage(msg))
}

// PlayAudio implements call.Notifier: emit one playback fragment as a binary
// frame at the moment the scheduler made it audible.
func (c *Client) PlayAudio(buf *audio.Buffer) {
	c.enqueue(WriteData{
		Type:    websocket.BinaryMessage,
		Payload: audio.EncodeS16LE(buf.Samples),
	})
}

func (c *Client) sendJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal message", zap.Error(err))
		return
	}
	c.enqueue(WriteData{Type: websocket.TextMessage, Payload: payload})
}

// enqueue drops the message when the client cannot keep up; a slow consumer
// must not stall the call.
func (c *Client) enqueue(data WriteData) {
	defer func() {
		// Send channel is closed on unregister; late writes from playback
		// timers or teardown no-op against it.
		recover()
	}()
	select {
	case c.send <- data:
	default:
		c.logger.Warn("Client send buffer full, dropping message",
			zap.String("userID", c.userID))
	}
}
