package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/collab-template-demo/domain/room"
)

// ErrNotFound is returned when a room row does not exist.
var ErrNotFound = errors.New("room not found")

// Limits applied when callers pass a non-positive limit.
const (
	DefaultPresenceLimit = 100
	DefaultHistoryLimit  = 50
)

// Repository provides access to room, message and presence storage.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository creates a new repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// GetOrCreateRoom reads a room, inserting it with defaultDocument when absent.
// created reports whether this call inserted the row.
func (r *Repository) GetOrCreateRoom(ctx context.Context, id, defaultDocument string) (rec room.Record, created bool, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row RoomRow
		findErr := tx.First(&row, "id = ?", id).Error
		if findErr == nil {
			rec = row.toRecord()
			return nil
		}
		if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}

		now := r.now().UTC()
		row = RoomRow{ID: id, Template: defaultDocument, CreatedAt: now, UpdatedAt: now}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := tx.First(&row, "id = ?", id).Error; err != nil {
				return err
			}
		} else {
			created = true
		}
		rec = row.toRecord()
		return nil
	})
	if err != nil {
		return room.Record{}, false, fmt.Errorf("failed to load room %s: %w", id, err)
	}
	return rec, created, nil
}

// GetRoom reads a room.
func (r *Repository) GetRoom(ctx context.Context, id string) (room.Record, error) {
	var row RoomRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return room.Record{}, ErrNotFound
		}
		return room.Record{}, fmt.Errorf("failed to find room: %w", err)
	}
	return row.toRecord(), nil
}

// UpdateDocument stores a room's document, recreating the row if it went missing.
func (r *Repository) UpdateDocument(ctx context.Context, id, document string) error {
	now := r.now().UTC()
	row := RoomRow{ID: id, Template: document, CreatedAt: now, UpdatedAt: now}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"template", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	return nil
}

// DeleteRoom removes a room together with its messages and presence rows.
func (r *Repository) DeleteRoom(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", id).Delete(&MessageRow{}).Error; err != nil {
			return fmt.Errorf("failed to delete room messages: %w", err)
		}
		if err := tx.Where("room_id = ?", id).Delete(&UserLogRow{}).Error; err != nil {
			return fmt.Errorf("failed to delete room logs: %w", err)
		}
		res := tx.Delete(&RoomRow{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete room: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListRooms returns every stored room, most recently updated first.
func (r *Repository) ListRooms(ctx context.Context) ([]RoomSummary, error) {
	var rows []RoomRow
	if err := r.db.WithContext(ctx).
		Select("id", "created_at", "updated_at").
		Order("updated_at DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return lo.Map(rows, func(row RoomRow, _ int) RoomSummary {
		return RoomSummary{ID: row.ID, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt}
	}), nil
}

// SaveMessage appends a message and returns it with its storage id.
func (r *Repository) SaveMessage(ctx context.Context, msg room.Message) (room.Message, error) {
	row := messageRowFrom(msg)
	if row.CreatedAt.IsZero() {
		row.CreatedAt = r.now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return msg, fmt.Errorf("failed to save message: %w", err)
	}
	return row.toMessage(), nil
}

// RecentMessages returns the newest limit messages of a room in chronological order.
func (r *Repository) RecentMessages(ctx context.Context, roomID string, limit int) ([]room.Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	var rows []MessageRow
	if err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	msgs := lo.Map(rows, func(row MessageRow, _ int) room.Message { return row.toMessage() })
	return lo.Reverse(msgs), nil
}

// DeleteRoomMessages clears a room's chat history.
func (r *Repository) DeleteRoomMessages(ctx context.Context, roomID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("room_id = ?", roomID).Delete(&MessageRow{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete room messages: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteMessagesBefore removes messages created before cutoff.
func (r *Repository) DeleteMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff.UTC()).Delete(&MessageRow{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete old messages: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// LogPresence appends a presence audit row.
func (r *Repository) LogPresence(ctx context.Context, ev room.PresenceEvent) error {
	row := UserLogRow{
		RoomID:    ev.RoomID,
		UserID:    ev.UserID,
		UserName:  ev.UserName,
		Action:    string(ev.Action),
		CreatedAt: ev.CreatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = r.now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to log presence: %w", err)
	}
	return nil
}

// PresenceLog returns a room's presence rows, newest first.
func (r *Repository) PresenceLog(ctx context.Context, roomID string, limit int) ([]room.PresenceEvent, error) {
	if limit <= 0 {
		limit = DefaultPresenceLimit
	}
	var rows []UserLogRow
	if err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read presence log: %w", err)
	}
	return lo.Map(rows, func(row UserLogRow, _ int) room.PresenceEvent { return row.toEvent() }), nil
}

// Counts returns row counts of all three tables.
func (r *Repository) Counts(ctx context.Context) (Stats, error) {
	var s Stats
	db := r.db.WithContext(ctx)
	if err := db.Model(&RoomRow{}).Count(&s.Rooms).Error; err != nil {
		return Stats{}, fmt.Errorf("failed to count rooms: %w", err)
	}
	if err := db.Model(&MessageRow{}).Count(&s.Messages).Error; err != nil {
		return Stats{}, fmt.Errorf("failed to count messages: %w", err)
	}
	if err := db.Model(&UserLogRow{}).Count(&s.Logs).Error; err != nil {
		return Stats{}, fmt.Errorf("failed to count logs: %w", err)
	}
	return s, nil
}

// Optimize asks sqlite to refresh its query planner statistics.
func (r *Repository) Optimize(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Exec("PRAGMA optimize").Error; err != nil {
		return fmt.Errorf("failed to optimize database: %w", err)
	}
	return nil
}
