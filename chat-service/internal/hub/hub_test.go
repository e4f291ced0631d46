package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-chat/chat-service/internal/config"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/domain"
)

func newTestClient(id, userID string) *Client {
	return NewClient(domain.NewSession(id, userID, ""), nil, config.WebSocketConfig{
		PingInterval: time.Second,
		PongWait:     time.Second,
		WriteWait:    time.Second,
	})
}

func drain(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case m, ok := <-c.Outbound():
			if !ok {
				return out
			}
			out = append(out, m)
		default:
			return out
		}
	}
}

func TestBroadcastReachesOnlySubscribers(t *testing.T) {
	h := NewHub()
	a, b := newTestClient("c1", "u1"), newTestClient("c2", "u2")
	h.Register(a)
	h.Register(b)

	require.NoError(t, h.Subscribe(a, "room:lobby"))
	assert.Equal(t, 1, h.Broadcast("room:lobby", []byte("hello")))

	assert.Len(t, drain(a), 1)
	assert.Empty(t, drain(b))
}

func TestSubscribeUserCoversEveryConnection(t *testing.T) {
	h := NewHub()
	phone, laptop, other := newTestClient("c1", "u1"), newTestClient("c2", "u1"), newTestClient("c3", "u2")
	h.Register(phone)
	h.Register(laptop)
	h.Register(other)

	assert.Equal(t, 2, h.SubscribeUser("u1", "dm:x"))
	assert.Equal(t, 0, h.SubscribeUser("nobody", "dm:x"))
	assert.Equal(t, 2, h.Broadcast("dm:x", []byte("m")))
	assert.True(t, laptop.Session.HasChannel("dm:x"))
	assert.False(t, other.Session.HasChannel("dm:x"))
}

func TestUnregisterRemovesSubscriptionsAndIsIdempotent(t *testing.T) {
	h := NewHub()
	c := newTestClient("c1", "u1")
	h.Register(c)
	require.NoError(t, h.Subscribe(c, "room:a", "room:b"))

	assert.True(t, h.Unregister(c))
	assert.False(t, h.Unregister(c))

	assert.Equal(t, 0, h.ClientCount())
	assert.Equal(t, 0, h.ChannelClientCount("room:a"))
	assert.Equal(t, 0, h.SubscribeUser("u1", "room:c"))
	assert.ErrorIs(t, c.SendMessage(map[string]string{"type": "pong"}), ErrClientClosed)
}

func TestSubscribeUnknownClientJoinsNothing(t *testing.T) {
	h := NewHub()
	c := newTestClient("c1", "u1")

	assert.ErrorIs(t, h.Subscribe(c, "room:a", "room:b"), ErrUnknownClient)
	assert.Empty(t, c.Session.Channels())
	assert.False(t, h.HasSubscribers("room:a"))
}

func TestSlowClientIsEvicted(t *testing.T) {
	h := NewHub()
	var evicted []string
	h.OnEvict = func(c *Client) { evicted = append(evicted, c.ID) }

	slow, fast := newTestClient("slow", "u1"), newTestClient("fast", "u2")
	h.Register(slow)
	h.Register(fast)
	require.NoError(t, h.Subscribe(slow, "room:a"))
	require.NoError(t, h.Subscribe(fast, "room:a"))

	for i := 0; i < sendBufferSize; i++ {
		h.Broadcast("room:a", []byte("x"))
		drain(fast)
	}
	assert.Equal(t, 1, h.Broadcast("room:a", []byte("overflow")))

	assert.Equal(t, []string{"slow"}, evicted)
	assert.Equal(t, 1, h.ChannelClientCount("room:a"))
	assert.Equal(t, 1, h.ClientCount())
}
