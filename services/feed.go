package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"pinpointAPI/internal/events"
	"pinpointAPI/middleware"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Redis channel carrying row-change events between instances.
	feedChannel = "pinpoint:row_changes"
)

// FeedClient is one subscribed websocket. Table and Event are optional
// filters; empty means "all changes addressed to me".
type FeedClient struct {
	feed   *FeedService
	conn   *websocket.Conn
	send   chan []byte
	UserID uuid.UUID
	Table  string
	Event  string
}

// FeedService is the realtime change feed: services publish ChangeEvents
// after successful writes, the hub fans them out to subscribed sockets.
// When Redis is configured events go through a pub/sub channel first so
// every instance delivers to its own clients.
type FeedService struct {
	rdb        *redis.Client
	clients    map[*FeedClient]bool
	register   chan *FeedClient
	unregister chan *FeedClient
	broadcast  chan *events.ChangeEvent
	done       chan struct{}
}

func NewFeedService(rdb *redis.Client) *FeedService {
	return &FeedService{
		rdb:        rdb,
		clients:    make(map[*FeedClient]bool),
		register:   make(chan *FeedClient),
		unregister: make(chan *FeedClient),
		broadcast:  make(chan *events.ChangeEvent, 64),
		done:       make(chan struct{}),
	}
}

// NewFeedClient wraps an upgraded connection; the caller starts the pumps.
func (f *FeedService) NewFeedClient(conn *websocket.Conn, userID uuid.UUID, table, event string) *FeedClient {
	return &FeedClient{
		feed:   f,
		conn:   conn,
		send:   make(chan []byte, 64),
		UserID: userID,
		Table:  table,
		Event:  event,
	}
}

// Register and Unregister hand the client to Run; after Run has exited
// they return immediately so pump goroutines cannot hang on a dead hub.
func (f *FeedService) Register(c *FeedClient) {
	select {
	case f.register <- c:
	case <-f.done:
	}
}

func (f *FeedService) Unregister(c *FeedClient) {
	select {
	case f.unregister <- c:
	case <-f.done:
	}
}

// Publish emits a row-change event. With Redis the event loops back through
// the subscription, so it is not broadcast locally twice.
func (f *FeedService) Publish(ctx context.Context, ev *events.ChangeEvent) {
	if ev == nil {
		return
	}
	if f.rdb != nil {
		payload, err := json.Marshal(ev)
		if err != nil {
			log.Printf("Feed: failed to marshal event: %v", err)
			return
		}
		if err := f.rdb.Publish(ctx, feedChannel, payload).Err(); err != nil {
			log.Printf("Feed: redis publish failed, delivering locally: %v", err)
			f.enqueue(ev)
		}
		return
	}
	f.enqueue(ev)
}

func (f *FeedService) enqueue(ev *events.ChangeEvent) {
	select {
	case f.broadcast <- ev:
	case <-f.done:
	}
}

// Run owns the client set. Register, unregister and delivery all go through
// here so no locking is needed.
func (f *FeedService) Run(ctx context.Context) {
	defer close(f.done)

	if f.rdb != nil {
		go f.subscribeLoop(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			for client := range f.clients {
				close(client.send)
				delete(f.clients, client)
			}
			return
		case client := <-f.register:
			f.clients[client] = true
			middleware.FeedClientConnected()
		case client := <-f.unregister:
			if _, ok := f.clients[client]; ok {
				delete(f.clients, client)
				close(client.send)
				middleware.FeedClientDisconnected()
			}
		case ev := <-f.broadcast:
			f.deliver(ev)
		}
	}
}

func (f *FeedService) subscribeLoop(ctx context.Context) {
	pubsub := f.rdb.Subscribe(ctx, feedChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		ev := &events.ChangeEvent{}
		if err := json.Unmarshal([]byte(msg.Payload), ev); err != nil {
			log.Printf("Feed: dropping malformed event: %v", err)
			continue
		}
		select {
		case f.broadcast <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (f *FeedService) deliver(ev *events.ChangeEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("Feed: failed to marshal event: %v", err)
		return
	}

	for client := range f.clients {
		if !ev.AddressedTo(client.UserID) || !ev.Matches(client.Table, client.Event) {
			continue
		}
		select {
		case client.send <- data:
		default:
			// Slow client: drop it rather than stall the feed.
			close(client.send)
			delete(f.clients, client)
			middleware.FeedClientDisconnected()
		}
	}
}

// ReadPump drains the connection so pongs and close frames are processed.
// Subscribers never send application data.
func (c *FeedClient) ReadPump() {
	defer func() {
		c.feed.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Feed: read error: %v", err)
			}
			return
		}
	}
}

func (c *FeedClient) WritePump() {
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
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
