// Package activity counts room activity from the session module's events.
package activity

import (
	"context"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/collab-template-demo/events"
)

// ActivityModule consumes session events and keeps counters for the admin API.
type ActivityModule struct {
	counters *Counters
	logger   types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module              = (*ActivityModule)(nil)
	_ mono.EventConsumerModule = (*ActivityModule)(nil)
)

// NewModule creates a new activity module.
func NewModule(logger types.Logger) *ActivityModule {
	return &ActivityModule{
		counters: NewCounters(),
		logger:   logger,
	}
}

// Name returns the module name.
func (m *ActivityModule) Name() string {
	return "activity"
}

// RegisterEventConsumers subscribes to every session event.
func (m *ActivityModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.MemberJoinedV1, m.handleMemberJoined, m); err != nil {
		return fmt.Errorf("failed to register MemberJoined consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.MemberLeftV1, m.handleMemberLeft, m); err != nil {
		return fmt.Errorf("failed to register MemberLeft consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.MemberRenamedV1, m.handleMemberRenamed, m); err != nil {
		return fmt.Errorf("failed to register MemberRenamed consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.DocumentUpdatedV1, m.handleDocumentUpdated, m); err != nil {
		return fmt.Errorf("failed to register DocumentUpdated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.EditFailedV1, m.handleEditFailed, m); err != nil {
		return fmt.Errorf("failed to register EditFailed consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.RoomEvictedV1, m.handleRoomEvicted, m); err != nil {
		return fmt.Errorf("failed to register RoomEvicted consumer: %w", err)
	}

	m.logger.Info("Registered event consumers", "events", []string{
		"MemberJoined.v1", "MemberLeft.v1", "MemberRenamed.v1",
		"DocumentUpdated.v1", "EditFailed.v1", "RoomEvicted.v1",
	})
	return nil
}

func (m *ActivityModule) handleMemberJoined(_ context.Context, event events.MemberJoinedEvent, _ *mono.Msg) error {
	m.counters.joined.Add(1)
	m.counters.observePeak(int64(event.MemberCount))
	m.counters.touch(event.Timestamp)
	return nil
}

func (m *ActivityModule) handleMemberLeft(_ context.Context, event events.MemberLeftEvent, _ *mono.Msg) error {
	m.counters.left.Add(1)
	m.counters.touch(event.Timestamp)
	return nil
}

func (m *ActivityModule) handleMemberRenamed(_ context.Context, event events.MemberRenamedEvent, _ *mono.Msg) error {
	m.counters.renamed.Add(1)
	m.counters.touch(event.Timestamp)
	return nil
}

func (m *ActivityModule) handleDocumentUpdated(_ context.Context, event events.DocumentUpdatedEvent, _ *mono.Msg) error {
	switch event.Source {
	case events.SourceAI:
		m.counters.aiEdits.Add(1)
	case events.SourceTemplate:
		m.counters.templates.Add(1)
	default:
		m.logger.Warn("Unknown document update source", "room", event.RoomID, "source", event.Source)
	}
	m.counters.touch(event.Timestamp)
	return nil
}

func (m *ActivityModule) handleEditFailed(_ context.Context, event events.EditFailedEvent, _ *mono.Msg) error {
	m.counters.failed.Add(1)
	m.counters.touch(event.Timestamp)
	m.logger.Debug("Recorded failed edit", "room", event.RoomID, "edit", event.EditID, "reason", event.Reason)
	return nil
}

func (m *ActivityModule) handleRoomEvicted(_ context.Context, event events.RoomEvictedEvent, _ *mono.Msg) error {
	m.counters.evicted.Add(1)
	m.counters.touch(event.Timestamp)
	return nil
}

// Start initializes the activity module.
func (m *ActivityModule) Start(_ context.Context) error {
	m.logger.Info("Activity module started")
	return nil
}

// Stop shuts down the module.
func (m *ActivityModule) Stop(_ context.Context) error {
	m.logger.Info("Activity module stopped", "counters", m.counters.Snapshot())
	return nil
}

// Snapshot returns the current counters.
func (m *ActivityModule) Snapshot() Snapshot {
	return m.counters.Snapshot()
}
