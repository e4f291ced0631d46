package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"

	"github.com/weiawesome/wes-io-chat/chat-service/internal/domain"
)

// CassandraConfig holds the history cluster settings.
type CassandraConfig struct {
	Hosts          []string      `mapstructure:"hosts"`
	Keyspace       string        `mapstructure:"keyspace"`
	Consistency    string        `mapstructure:"consistency"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	Timeout        time.Duration `mapstructure:"timeout"`
	NumConns       int           `mapstructure:"num_conns"`
	CreateSchema   bool          `mapstructure:"create_schema"`
}

const createTableCQL = `
CREATE TABLE IF NOT EXISTS messages_by_channel (
	channel      text,
	message_id   text,
	from_user_id text,
	to_user_id   text,
	room_id      text,
	text         text,
	sent_at      timestamp,
	PRIMARY KEY ((channel), message_id)
) WITH CLUSTERING ORDER BY (message_id ASC)`

// CassandraStore keeps one partition per channel, clustered by message id.
// Rows are written with a TTL equal to the retention window.
type CassandraStore struct {
	session   *gocql.Session
	ids       *IDGenerator
	retention time.Duration
}

func NewCassandraStore(cfg CassandraConfig, retention time.Duration) (*CassandraStore, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = parseConsistency(cfg.Consistency)
	if cfg.ConnectTimeout > 0 {
		cluster.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.Timeout > 0 {
		cluster.Timeout = cfg.Timeout
	}
	if cfg.NumConns > 0 {
		cluster.NumConns = cfg.NumConns
	}

	if cfg.Username != "" && cfg.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        100 * time.Millisecond,
		Max:        2 * time.Second,
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create cassandra session: %w", err)
	}

	if cfg.CreateSchema {
		if err := session.Query(createTableCQL).Exec(); err != nil {
			session.Close()
			return nil, fmt.Errorf("failed to create history table: %w", err)
		}
	}

	return &CassandraStore{
		session:   session,
		ids:       NewIDGenerator(),
		retention: retention,
	}, nil
}

func (s *CassandraStore) Append(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	id, err := s.ids.New(msg.SentAt)
	if err != nil {
		return nil, err
	}

	query := `INSERT INTO messages_by_channel (
			channel, message_id, from_user_id, to_user_id, room_id, text, sent_at
		) VALUES (?, ?, ?, ?, ?, ?, ?) USING TTL ?`

	err = s.session.Query(query,
		msg.Channel,
		id,
		msg.FromUserID,
		msg.ToUserID,
		msg.RoomID,
		msg.Text,
		msg.SentAt,
		ttlSeconds(s.retention),
	).WithContext(ctx).Exec()
	if err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	stored := *msg
	stored.ID = id
	return &stored, nil
}

func (s *CassandraStore) LoadPage(ctx context.Context, channel, afterID string, take int) (*domain.HistoryPage, error) {
	if !ValidCursor(afterID) {
		return nil, ErrInvalidCursor
	}

	// One extra row tells us whether another page exists.
	queryLimit := take + 1

	var iter *gocql.Iter
	if afterID == "" {
		iter = s.session.Query(`SELECT message_id, from_user_id, to_user_id, room_id, text, sent_at
				FROM messages_by_channel
				WHERE channel = ?
				ORDER BY message_id ASC
				LIMIT ?`, channel, queryLimit).WithContext(ctx).Iter()
	} else {
		iter = s.session.Query(`SELECT message_id, from_user_id, to_user_id, room_id, text, sent_at
				FROM messages_by_channel
				WHERE channel = ? AND message_id > ?
				ORDER BY message_id ASC
				LIMIT ?`, channel, afterID, queryLimit).WithContext(ctx).Iter()
	}

	var items []*domain.ChatMessage
	var msg domain.ChatMessage
	for iter.Scan(&msg.ID, &msg.FromUserID, &msg.ToUserID, &msg.RoomID, &msg.Text, &msg.SentAt) {
		m := msg
		m.Channel = channel
		items = append(items, &m)
		msg = domain.ChatMessage{}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	page := &domain.HistoryPage{Channel: channel, Items: items}
	if len(items) > take {
		page.Items = items[:take]
		page.NextAfterID = page.Items[len(page.Items)-1].ID
	}
	if page.Items == nil {
		page.Items = []*domain.ChatMessage{}
	}
	return page, nil
}

func (s *CassandraStore) Close() error {
	s.session.Close()
	return nil
}

func ttlSeconds(retention time.Duration) int {
	if retention <= 0 {
		return 0
	}
	secs := int(retention / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

func parseConsistency(s string) gocql.Consistency {
	switch strings.ToUpper(s) {
	case "ONE":
		return gocql.One
	case "QUORUM":
		return gocql.Quorum
	case "ALL":
		return gocql.All
	case "LOCAL_QUORUM":
		return gocql.LocalQuorum
	case "LOCAL_ONE":
		return gocql.LocalOne
	default:
		return gocql.LocalQuorum
	}
}
