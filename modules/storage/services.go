package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/collab-template-demo/domain/room"
)

// Service names, prefixed by the framework with "services.storage.".
const (
	ServiceStats          = "stats"
	ServiceListRooms      = "list-rooms"
	ServiceDeleteRoom     = "delete-room"
	ServicePurgeMessages  = "purge-messages"
	ServicePresenceLog    = "presence-log"
	ServiceRecentMessages = "recent-messages"
	ServiceClearMessages  = "clear-messages"
	ServiceGetRoom        = "get-room"
)

// StatsRequest asks for table counts.
type StatsRequest struct{}

// StatsResponse carries table counts.
type StatsResponse struct {
	Stats Stats `json:"stats"`
}

// ListRoomsRequest asks for every stored room.
type ListRoomsRequest struct{}

// ListRoomsResponse carries stored rooms.
type ListRoomsResponse struct {
	Rooms []RoomSummary `json:"rooms"`
}

// DeleteRoomRequest names a room to delete.
type DeleteRoomRequest struct {
	RoomID string `json:"room_id"`
}

// DeleteRoomResponse reports the outcome of a delete.
type DeleteRoomResponse struct {
	Deleted  bool `json:"deleted"`
	NotFound bool `json:"not_found,omitempty"`
}

// PurgeMessagesRequest asks to remove messages older than Days.
type PurgeMessagesRequest struct {
	Days int `json:"days"`
}

// PurgeMessagesResponse reports how many messages were removed.
type PurgeMessagesResponse struct {
	Deleted int64 `json:"deleted"`
}

// PresenceLogRequest asks for a room's presence rows.
type PresenceLogRequest struct {
	RoomID string `json:"room_id"`
	Limit  int    `json:"limit"`
}

// PresenceLogResponse carries presence rows, newest first.
type PresenceLogResponse struct {
	Events []room.PresenceEvent `json:"events"`
}

// RecentMessagesRequest asks for a room's newest messages.
type RecentMessagesRequest struct {
	RoomID string `json:"room_id"`
	Limit  int    `json:"limit"`
}

// RecentMessagesResponse carries messages oldest-first.
type RecentMessagesResponse struct {
	Messages []room.Message `json:"messages"`
}

// ClearMessagesRequest names a room whose chat history is dropped.
type ClearMessagesRequest struct {
	RoomID string `json:"room_id"`
}

// ClearMessagesResponse reports how many messages were removed.
type ClearMessagesResponse struct {
	Deleted int64 `json:"deleted"`
}

// GetRoomRequest names a stored room to read.
type GetRoomRequest struct {
	RoomID string `json:"room_id"`
}

// GetRoomResponse carries the stored room, if any.
type GetRoomResponse struct {
	Room     room.Record `json:"room"`
	NotFound bool        `json:"not_found,omitempty"`
}

// RegisterServices registers request-reply services in the service container.
// The framework automatically prefixes service names with "services.<module>."
// so "stats" becomes "services.storage.stats" in the NATS subject.
func (m *StorageModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceStats, json.Unmarshal, json.Marshal, m.handleStats,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceStats, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceListRooms, json.Unmarshal, json.Marshal, m.handleListRooms,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceListRooms, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceDeleteRoom, json.Unmarshal, json.Marshal, m.handleDeleteRoom,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceDeleteRoom, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServicePurgeMessages, json.Unmarshal, json.Marshal, m.handlePurgeMessages,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServicePurgeMessages, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServicePresenceLog, json.Unmarshal, json.Marshal, m.handlePresenceLog,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServicePresenceLog, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceRecentMessages, json.Unmarshal, json.Marshal, m.handleRecentMessages,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceRecentMessages, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceClearMessages, json.Unmarshal, json.Marshal, m.handleClearMessages,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceClearMessages, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceGetRoom, json.Unmarshal, json.Marshal, m.handleGetRoom,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetRoom, err)
	}

	m.logger.Info("Registered services",
		"services", []string{ServiceStats, ServiceListRooms, ServiceDeleteRoom, ServicePurgeMessages, ServicePresenceLog, ServiceRecentMessages, ServiceClearMessages, ServiceGetRoom})
	return nil
}

func (m *StorageModule) handleStats(ctx context.Context, _ StatsRequest, _ *mono.Msg) (StatsResponse, error) {
	s, err := m.Stats(ctx)
	if err != nil {
		return StatsResponse{}, err
	}
	return StatsResponse{Stats: s}, nil
}

func (m *StorageModule) handleListRooms(ctx context.Context, _ ListRoomsRequest, _ *mono.Msg) (ListRoomsResponse, error) {
	rooms, err := m.repo.ListRooms(ctx)
	if err != nil {
		return ListRoomsResponse{}, err
	}
	return ListRoomsResponse{Rooms: rooms}, nil
}

func (m *StorageModule) handleDeleteRoom(ctx context.Context, req DeleteRoomRequest, _ *mono.Msg) (DeleteRoomResponse, error) {
	err := m.repo.DeleteRoom(ctx, req.RoomID)
	if errors.Is(err, ErrNotFound) {
		return DeleteRoomResponse{NotFound: true}, nil
	}
	if err != nil {
		return DeleteRoomResponse{}, err
	}
	m.logger.Info("Room deleted", "room", req.RoomID)
	return DeleteRoomResponse{Deleted: true}, nil
}

func (m *StorageModule) handlePurgeMessages(ctx context.Context, req PurgeMessagesRequest, _ *mono.Msg) (PurgeMessagesResponse, error) {
	n, err := m.PurgeMessages(ctx, req.Days)
	if err != nil {
		return PurgeMessagesResponse{}, err
	}
	m.logger.Info("Purged messages", "days", req.Days, "deleted", n)
	return PurgeMessagesResponse{Deleted: n}, nil
}

func (m *StorageModule) handlePresenceLog(ctx context.Context, req PresenceLogRequest, _ *mono.Msg) (PresenceLogResponse, error) {
	events, err := m.repo.PresenceLog(ctx, req.RoomID, req.Limit)
	if err != nil {
		return PresenceLogResponse{}, err
	}
	return PresenceLogResponse{Events: events}, nil
}

func (m *StorageModule) handleRecentMessages(ctx context.Context, req RecentMessagesRequest, _ *mono.Msg) (RecentMessagesResponse, error) {
	msgs, err := m.repo.RecentMessages(ctx, req.RoomID, req.Limit)
	if err != nil {
		return RecentMessagesResponse{}, err
	}
	return RecentMessagesResponse{Messages: msgs}, nil
}

func (m *StorageModule) handleClearMessages(ctx context.Context, req ClearMessagesRequest, _ *mono.Msg) (ClearMessagesResponse, error) {
	n, err := m.repo.DeleteRoomMessages(ctx, req.RoomID)
	if err != nil {
		return ClearMessagesResponse{}, err
	}
	m.logger.Info("Room history cleared", "room", req.RoomID, "deleted", n)
	return ClearMessagesResponse{Deleted: n}, nil
}

func (m *StorageModule) handleGetRoom(ctx context.Context, req GetRoomRequest, _ *mono.Msg) (GetRoomResponse, error) {
	rec, err := m.repo.GetRoom(ctx, req.RoomID)
	if errors.Is(err, ErrNotFound) {
		return GetRoomResponse{NotFound: true}, nil
	}
	if err != nil {
		return GetRoomResponse{}, err
	}
	return GetRoomResponse{Room: rec}, nil
}
