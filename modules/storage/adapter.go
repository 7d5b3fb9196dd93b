package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/collab-template-demo/domain/room"
)

// StoragePort is the administrative surface of the storage module.
type StoragePort interface {
	Stats(ctx context.Context) (Stats, error)
	ListRooms(ctx context.Context) ([]RoomSummary, error)
	DeleteRoom(ctx context.Context, roomID string) error
	PurgeMessages(ctx context.Context, days int) (int64, error)
	PresenceLog(ctx context.Context, roomID string, limit int) ([]room.PresenceEvent, error)
	RecentMessages(ctx context.Context, roomID string, limit int) ([]room.Message, error)
	ClearMessages(ctx context.Context, roomID string) (int64, error)
	GetRoom(ctx context.Context, roomID string) (room.Record, error)
}

// Adapter implements StoragePort over the storage module's request-reply services.
type Adapter struct {
	container mono.ServiceContainer
}

// NewAdapter creates a new Adapter.
func NewAdapter(container mono.ServiceContainer) StoragePort {
	if container == nil {
		panic("storage: ServiceContainer is nil")
	}
	return &Adapter{container: container}
}

// call runs one request-reply round trip with typed request and response values.
func call[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req *Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("failed to call %s: %w", service, err)
	}
	return nil
}

// Stats returns table counts.
func (a *Adapter) Stats(ctx context.Context) (Stats, error) {
	var resp StatsResponse
	if err := call(ctx, a.container, ServiceStats, &StatsRequest{}, &resp); err != nil {
		return Stats{}, err
	}
	return resp.Stats, nil
}

// ListRooms returns stored rooms.
func (a *Adapter) ListRooms(ctx context.Context) ([]RoomSummary, error) {
	var resp ListRoomsResponse
	if err := call(ctx, a.container, ServiceListRooms, &ListRoomsRequest{}, &resp); err != nil {
		return nil, err
	}
	return resp.Rooms, nil
}

// DeleteRoom removes a stored room.
func (a *Adapter) DeleteRoom(ctx context.Context, roomID string) error {
	var resp DeleteRoomResponse
	if err := call(ctx, a.container, ServiceDeleteRoom, &DeleteRoomRequest{RoomID: roomID}, &resp); err != nil {
		return err
	}
	if resp.NotFound {
		return ErrNotFound
	}
	return nil
}

// PurgeMessages deletes messages older than days.
func (a *Adapter) PurgeMessages(ctx context.Context, days int) (int64, error) {
	var resp PurgeMessagesResponse
	if err := call(ctx, a.container, ServicePurgeMessages, &PurgeMessagesRequest{Days: days}, &resp); err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}

// PresenceLog returns a room's presence rows.
func (a *Adapter) PresenceLog(ctx context.Context, roomID string, limit int) ([]room.PresenceEvent, error) {
	var resp PresenceLogResponse
	if err := call(ctx, a.container, ServicePresenceLog, &PresenceLogRequest{RoomID: roomID, Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// RecentMessages returns a room's newest messages.
func (a *Adapter) RecentMessages(ctx context.Context, roomID string, limit int) ([]room.Message, error) {
	var resp RecentMessagesResponse
	if err := call(ctx, a.container, ServiceRecentMessages, &RecentMessagesRequest{RoomID: roomID, Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// ClearMessages drops a room's chat history.
func (a *Adapter) ClearMessages(ctx context.Context, roomID string) (int64, error) {
	var resp ClearMessagesResponse
	if err := call(ctx, a.container, ServiceClearMessages, &ClearMessagesRequest{RoomID: roomID}, &resp); err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}

// GetRoom reads a stored room. A missing room yields ErrNotFound.
func (a *Adapter) GetRoom(ctx context.Context, roomID string) (room.Record, error) {
	var resp GetRoomResponse
	if err := call(ctx, a.container, ServiceGetRoom, &GetRoomRequest{RoomID: roomID}, &resp); err != nil {
		return room.Record{}, err
	}
	if resp.NotFound {
		return room.Record{}, ErrNotFound
	}
	return resp.Room, nil
}
