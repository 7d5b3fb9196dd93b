package session

import (
	"context"

	"github.com/example/collab-template-demo/domain/room"
)

// Store is the persistence the engine needs.
type Store interface {
	GetOrCreateRoom(ctx context.Context, id, defaultDocument string) (room.Record, bool, error)
	UpdateDocument(ctx context.Context, id, document string) error
	SaveMessage(ctx context.Context, msg room.Message) (room.Message, error)
	RecentMessages(ctx context.Context, roomID string, limit int) ([]room.Message, error)
	LogPresence(ctx context.Context, ev room.PresenceEvent) error
}

// Generator rewrites a document from an instruction.
type Generator interface {
	Rewrite(ctx context.Context, document, instruction string, temperature float64) (string, error)
}

// Templates resolves named template files.
type Templates interface {
	Read(name string) (string, error)
	Default() string
}
