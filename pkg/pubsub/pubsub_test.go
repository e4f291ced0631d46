package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastChannelNaming(t *testing.T) {
	bus := BroadcastChannel("room:42")
	assert.Equal(t, "chat:broadcast:room:42", bus)

	chat, err := ChatChannelFromBus(bus)
	require.NoError(t, err)
	assert.Equal(t, "room:42", chat)

	_, err = ChatChannelFromBus("chat:broadcast:")
	assert.Error(t, err)
	_, err = ChatChannelFromBus("signal:room:1:to_media")
	assert.Error(t, err)
}

func TestKafkaTopicMapping(t *testing.T) {
	topic, key, err := channelToTopicAndKey(BroadcastChannel("dm:a_b"))
	require.NoError(t, err)
	assert.Equal(t, KafkaTopicBroadcast, topic)
	assert.Equal(t, "dm:a_b", key)

	topic, err = patternToTopic(PatternBroadcast)
	require.NoError(t, err)
	assert.Equal(t, KafkaTopicBroadcast, topic)

	_, err = patternToTopic("other:*")
	assert.Error(t, err)

	assert.Equal(t, "chat-broadcast-chat-broadcast-room-1", sanitizeGroupID("chat-broadcast-chat:broadcast:room:1"))
}

func TestKafkaConfigForInstance(t *testing.T) {
	base := KafkaConfig{Brokers: "k:9092", GroupID: "chat-broadcast"}

	a := base.ForInstance("chat-a")
	b := base.ForInstance("chat:b")
	assert.Equal(t, "chat-broadcast-chat-a", a.GroupID)
	assert.Equal(t, "chat-broadcast-chat-b", b.GroupID)
	assert.NotEqual(t, a.GroupID, b.GroupID)
	assert.Equal(t, "chat-broadcast", base.GroupID)
	assert.Equal(t, "k:9092", a.Brokers)

	assert.Equal(t, defaultGroupID+"-x", KafkaConfig{}.ForInstance("x").GroupID)
}

func TestRedisPubSubPatternDelivery(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ps := NewRedisPubSubFromClient(client)
	t.Cleanup(func() { ps.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := ps.SubscribePattern(ctx, PatternBroadcast)
	require.NoError(t, err)

	ev, err := NewEvent(EventChatMessage, "room:7", "instance-a", map[string]string{"text": "hi"})
	require.NoError(t, err)
	require.NoError(t, ps.Publish(ctx, BroadcastChannel("room:7"), ev))

	select {
	case got := <-events:
		assert.Equal(t, EventChatMessage, got.Type)
		assert.Equal(t, "room:7", got.Channel)
		assert.Equal(t, "instance-a", got.Origin)

		var payload map[string]string
		require.NoError(t, got.UnmarshalPayload(&payload))
		assert.Equal(t, "hi", payload["text"])
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}
