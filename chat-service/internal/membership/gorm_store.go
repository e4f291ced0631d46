package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/weiawesome/wes-io-chat/pkg/log"
)

// RoomMemberModel is the GORM model for room membership rows.
type RoomMemberModel struct {
	ID        uint   `gorm:"primaryKey"`
	RoomID    string `gorm:"type:varchar(128);not null;uniqueIndex:idx_room_member"`
	UserID    string `gorm:"type:varchar(36);not null;uniqueIndex:idx_room_member;index"`
	Status    string `gorm:"type:varchar(20);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (RoomMemberModel) TableName() string {
	return "room_members"
}

// GormStore implements Store on a relational database.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates the room_members table.
func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(&RoomMemberModel{})
}

func (s *GormStore) MembershipStatus(ctx context.Context, roomID, userID string) (Status, error) {
	var model RoomMemberModel
	result := s.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return StatusNone, nil
		}
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Str(log.FieldRoomID, roomID).Msg("failed to load membership")
		return StatusNone, fmt.Errorf("load membership: %w", result.Error)
	}
	return Status(model.Status), nil
}

// SetStatus inserts or updates a membership row.
func (s *GormStore) SetStatus(ctx context.Context, roomID, userID string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid membership status %q", status)
	}
	model := RoomMemberModel{RoomID: roomID, UserID: userID, Status: string(status)}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(&model)
	if result.Error != nil {
		return fmt.Errorf("save membership: %w", result.Error)
	}
	return nil
}
