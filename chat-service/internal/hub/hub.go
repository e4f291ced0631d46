package hub

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/weiawesome/wes-io-chat/pkg/log"
)

var ErrUnknownClient = errors.New("client not registered")

// Hub is the session table of this instance. It indexes connections by id,
// by subscribed channel and by user. The lock is never held while writing
// to a socket.
type Hub struct {
	clients  map[string]*Client
	channels map[string]map[string]*Client
	users    map[string]map[string]*Client
	mu       sync.RWMutex

	// OnEvict is called after a slow client is dropped during broadcast.
	OnEvict func(*Client)
}

func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		channels: make(map[string]map[string]*Client),
		users:    make(map[string]map[string]*Client),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	addIndex(h.users, client.UserID(), client)

	l := log.L()
	l.Debug().Str(log.FieldConnectionID, client.ID).Str(log.FieldUserID, client.UserID()).Msg("client registered")
}

// Unregister removes the client and all its subscriptions and closes its
// send queue. It reports whether the client was registered.
func (h *Hub) Unregister(client *Client) bool {
	h.mu.Lock()
	_, ok := h.clients[client.ID]
	if ok {
		for _, ch := range client.Session.Channels() {
			removeIndex(h.channels, ch, client.ID)
		}
		removeIndex(h.users, client.UserID(), client.ID)
		delete(h.clients, client.ID)
	}
	h.mu.Unlock()

	client.close()

	if ok {
		l := log.L()
		l.Debug().Str(log.FieldConnectionID, client.ID).Msg("client unregistered")
	}
	return ok
}

// Subscribe adds the client to every channel, or to none if the client is
// no longer registered.
func (h *Hub) Subscribe(client *Client, channels ...string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return ErrUnknownClient
	}
	for _, ch := range channels {
		client.Session.AddChannel(ch)
		addIndex(h.channels, ch, client)
	}
	return nil
}

// SubscribeUser subscribes every live connection of userID to channel and
// returns how many connections were subscribed.
func (h *Hub) SubscribeUser(userID, channel string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.users[userID]
	for _, c := range conns {
		c.Session.AddChannel(channel)
		addIndex(h.channels, channel, c)
	}
	return len(conns)
}

// Broadcast queues data for every client subscribed to channel and returns
// the number of clients it reached. Clients whose queue is full are evicted.
func (h *Hub) Broadcast(channel string, data []byte) int {
	h.mu.RLock()
	var slow []*Client
	delivered := 0
	for _, c := range h.channels[channel] {
		switch err := c.enqueue(data); {
		case err == nil:
			delivered++
		case errors.Is(err, ErrSendBufferFull):
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		if h.Unregister(c) {
			l := log.L()
			l.Warn().Str(log.FieldConnectionID, c.ID).Str(log.FieldChannel, channel).Msg("evicted slow client")
			if h.OnEvict != nil {
				h.OnEvict(c)
			}
		}
	}
	return delivered
}

// BroadcastMessage marshals message and broadcasts it.
func (h *Hub) BroadcastMessage(channel string, message interface{}) (int, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return 0, err
	}
	return h.Broadcast(channel, data), nil
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) ChannelClientCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// HasSubscribers reports whether any local client listens on channel.
func (h *Hub) HasSubscribers(channel string) bool {
	return h.ChannelClientCount(channel) > 0
}

// ClientIDs lists registered connection ids.
func (h *Hub) ClientIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

func addIndex(idx map[string]map[string]*Client, key string, c *Client) {
	set, ok := idx[key]
	if !ok {
		set = make(map[string]*Client)
		idx[key] = set
	}
	set[c.ID] = c
}

func removeIndex(idx map[string]map[string]*Client, key, clientID string) {
	if set, ok := idx[key]; ok {
		delete(set, clientID)
		if len(set) == 0 {
			delete(idx, key)
		}
	}
}
