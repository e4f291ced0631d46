package pubsub

import (
	"fmt"
	"strings"
)

// Bus channel naming for the realtime messaging system. Chat channel
// identifiers ("dm:<a>_<b>", "room:<id>") are embedded verbatim after the
// broadcast prefix.
const (
	broadcastPrefix = "chat:broadcast:"

	// PatternBroadcast matches every chat broadcast bus channel.
	PatternBroadcast = broadcastPrefix + "*"

	// KafkaTopicBroadcast is the single topic the Kafka driver maps every
	// broadcast bus channel onto; the chat channel becomes the message key.
	KafkaTopicBroadcast = "chat-broadcast"
)

// Event types carried on the bus.
const (
	EventChatMessage = "chat_message"
)

// BroadcastChannel returns the bus channel for a chat channel identifier.
func BroadcastChannel(chatChannel string) string {
	return broadcastPrefix + chatChannel
}

// ChatChannelFromBus reverses BroadcastChannel.
func ChatChannelFromBus(busChannel string) (string, error) {
	if !strings.HasPrefix(busChannel, broadcastPrefix) || len(busChannel) == len(broadcastPrefix) {
		return "", fmt.Errorf("invalid bus channel: %s", busChannel)
	}
	return strings.TrimPrefix(busChannel, broadcastPrefix), nil
}
