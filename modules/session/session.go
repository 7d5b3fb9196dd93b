package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/example/collab-template-demo/domain/room"
	"github.com/example/collab-template-demo/domain/validation"
	"github.com/example/collab-template-demo/events"
	"github.com/example/collab-template-demo/modules/broadcast"
)

// AttachRequest carries the raw connection parameters.
type AttachRequest struct {
	RoomID   string
	Name     string
	Template string
	RemoteIP string
	Conn     broadcast.Conn
}

// Session is one member's attachment to a room.
type Session struct {
	engine *Engine
	room   *Room
	member *room.Member // guarded by room.mu
	client *broadcast.Client

	ctx        context.Context
	cancel     context.CancelFunc
	writerDone chan struct{}
	detachOnce sync.Once
}

// MemberID returns the member id.
func (s *Session) MemberID() string {
	return s.client.ID
}

// RoomID returns the room id.
func (s *Session) RoomID() string {
	return s.room.ID
}

// Name returns the current display name.
func (s *Session) Name() string {
	s.room.mu.Lock()
	defer s.room.mu.Unlock()
	return s.member.Name
}

// Done is closed when the session's outbound side is closed.
func (s *Session) Done() <-chan struct{} {
	return s.client.Done()
}

// Wait blocks until the writer goroutine has stopped. The connection must not
// be released before Wait returns.
func (s *Session) Wait() {
	<-s.writerDone
}

// Attach validates the request, joins the room and starts the writer.
// Validation failures are returned before any room state is touched.
func (e *Engine) Attach(ctx context.Context, req AttachRequest) (*Session, error) {
	roomID := validation.SanitizeURLParam(req.RoomID)
	if roomID == "" {
		roomID = DefaultRoomID
	}
	templateFile := validation.SanitizeURLParam(req.Template)
	if templateFile == "" {
		templateFile = DefaultTemplateFile
	}
	if err := validation.ValidateRoomID(roomID); err != nil {
		return nil, err
	}
	if err := validation.ValidateFilename(templateFile); err != nil {
		return nil, err
	}

	name := validation.SanitizeURLParam(req.Name)
	if name != "" && validation.ValidateUserName(name) != nil {
		e.logger.Warn("Invalid user name replaced with placeholder", "ip", req.RemoteIP)
		name = ""
	}

	for i := 0; i < attachTries; i++ {
		r, err := e.registry.GetOrCreate(ctx, roomID, templateFile)
		if err != nil {
			return nil, err
		}
		s, ok := e.join(r, name, req.Conn)
		if !ok {
			// lost a race with eviction; the next lookup loads a fresh room
			continue
		}

		go func() {
			defer close(s.writerDone)
			if err := s.client.WritePump(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
				e.logger.Debug("Writer stopped", "member", s.MemberID(), "error", err)
			}
		}()
		return s, nil
	}
	return nil, fmt.Errorf("%w: room %s kept being evicted", room.ErrRoomUnavailable, roomID)
}

func (e *Engine) join(r *Room, name string, conn broadcast.Conn) (*Session, bool) {
	r.mu.Lock()
	if r.evicted.Load() {
		r.mu.Unlock()
		return nil, false
	}

	if name == "" {
		name = fmt.Sprintf("User%d", len(r.members)+1)
	}
	now := e.now()
	member := &room.Member{ID: e.nextMemberID(now), Name: name, JoinedAt: now}
	r.members = append(r.members, member)
	r.emptySince = time.Time{}

	client := broadcast.NewClient(member.ID, r.ID, conn, e.cfg.QueueSize)
	e.hub.Register(client)
	e.logPresence(r, *member, room.ActionJoined)

	history := e.recentMessages(r)
	members := r.memberList()
	e.hub.Send(member.ID, InitFrame{
		Kind:         KindInit,
		MemberID:     member.ID,
		Name:         member.Name,
		RoomID:       r.ID,
		Document:     r.document,
		TemplateFile: r.templateFile,
		Messages:     history,
		Members:      members,
	})
	e.hub.Broadcast(r.ID, MemberJoinedFrame{Kind: KindMemberJoined, Member: *member, Members: members}, member.ID)
	e.systemMessage(r, fmt.Sprintf("%s joined the room", member.Name))
	count := len(r.members)
	r.mu.Unlock()

	ctx, cancel := context.WithCancel(e.baseCtx)
	s := &Session{
		engine:     e,
		room:       r,
		member:     member,
		client:     client,
		ctx:        ctx,
		cancel:     cancel,
		writerDone: make(chan struct{}),
	}
	e.sessions.Add(1)
	e.logger.Info("Member joined", "room", r.ID, "member", member.ID, "name", member.Name, "members", count)

	if bus := e.eventBus(); bus != nil {
		e.published("MemberJoined", events.MemberJoinedV1.Publish(bus, events.MemberJoinedEvent{
			RoomID:      r.ID,
			MemberID:    member.ID,
			MemberName:  member.Name,
			MemberCount: count,
			Timestamp:   now,
		}, nil))
	}
	return s, true
}

// recentMessages requires mu.
func (e *Engine) recentMessages(r *Room) []room.Message {
	ctx, cancel := e.storeCtx()
	defer cancel()

	msgs, err := e.store.RecentMessages(ctx, r.ID, e.cfg.HistoryLimit)
	if err != nil {
		e.logger.Error("Failed to load history", "room", r.ID, "error", err)
		return []room.Message{}
	}
	if msgs == nil {
		return []room.Message{}
	}
	return msgs
}

// Detach removes the member from its room. Safe to call more than once.
func (s *Session) Detach() {
	s.detachOnce.Do(func() {
		e, r := s.engine, s.room

		r.mu.Lock()
		member := *s.member
		r.removeMember(member.ID)
		e.hub.Unregister(member.ID)
		e.logPresence(r, member, room.ActionLeft)
		e.systemMessage(r, fmt.Sprintf("%s left the room", member.Name))
		e.hub.Broadcast(r.ID, MemberLeftFrame{
			Kind:     KindMemberLeft,
			MemberID: member.ID,
			Name:     member.Name,
			Members:  r.memberList(),
		}, "")
		count := len(r.members)
		if count == 0 {
			r.emptySince = e.now()
		}
		r.mu.Unlock()

		s.cancel()
		s.client.Close()
		e.sessions.Add(-1)
		e.logger.Info("Member left", "room", r.ID, "member", member.ID, "name", member.Name, "members", count)

		if bus := e.eventBus(); bus != nil {
			e.published("MemberLeft", events.MemberLeftV1.Publish(bus, events.MemberLeftEvent{
				RoomID:      r.ID,
				MemberID:    member.ID,
				MemberName:  member.Name,
				MemberCount: count,
				Timestamp:   e.now(),
			}, nil))
		}
	})
}
