package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/example/collab-template-demo/domain/room"
	"github.com/example/collab-template-demo/domain/validation"
	"github.com/example/collab-template-demo/events"
)

var validate = validator.New()

// DecodeFrame parses and validates an inbound frame.
func DecodeFrame(payload []byte) (InboundFrame, error) {
	var f InboundFrame
	if err := json.Unmarshal(payload, &f); err != nil {
		return InboundFrame{}, fmt.Errorf("%w: invalid JSON", room.ErrProtocol)
	}
	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			if fe.Field() == "Kind" {
				return InboundFrame{}, fmt.Errorf("%w: unknown kind %q", room.ErrProtocol, f.Kind)
			}
			return InboundFrame{}, fmt.Errorf("%w: missing %s", room.ErrProtocol, strings.ToLower(fe.Field()))
		}
		return InboundFrame{}, fmt.Errorf("%w: %v", room.ErrProtocol, err)
	}
	return f, nil
}

// Handle processes one inbound frame. Rejections are replied to the sender only.
func (s *Session) Handle(payload []byte) {
	if s.ctx.Err() != nil {
		return
	}
	if err := s.allow(); err != nil {
		s.reject(err)
		return
	}

	frame, err := DecodeFrame(payload)
	if err != nil {
		s.reject(err)
		return
	}

	switch frame.Kind {
	case InboundMessage:
		s.handleText(frame)
	case InboundChangeTemplate:
		s.switchTemplate(frame.Filename)
	}
}

// allow applies the per-member command limit. Limiter errors fail open.
func (s *Session) allow() error {
	limiter := s.engine.limiter
	if limiter == nil {
		return nil
	}
	res, err := limiter.Allow(s.ctx, s.MemberID())
	if err != nil {
		s.engine.logger.Warn("Command rate limiter failed, allowing", "member", s.MemberID(), "error", err)
		return nil
	}
	if !res.Allowed {
		return room.ErrRateLimited
	}
	return nil
}

func (s *Session) reject(err error) {
	s.engine.logger.Debug("Rejected command", "room", s.RoomID(), "member", s.MemberID(), "error", err)
	s.engine.hub.Send(s.MemberID(), ErrorFrame{Kind: KindError, Message: err.Error()})
}

func (s *Session) handleText(frame InboundFrame) {
	cmd := validation.ParseCommand(frame.Text)
	switch cmd.Kind {
	case validation.CommandRename:
		s.rename(cmd.Arg)
	case validation.CommandAIEdit:
		var temperature any
		if frame.Settings != nil {
			temperature = frame.Settings.Temperature
		}
		s.requestEdit(cmd.Arg, temperature)
	default:
		s.chat(cmd.Arg)
	}
}

func (s *Session) chat(raw string) {
	text, err := validation.ValidateMessageText(raw)
	if err != nil {
		s.reject(err)
		return
	}

	e, r := s.engine, s.room
	r.mu.Lock()
	defer r.mu.Unlock()
	e.appendMessage(r, room.NewUserMessage(r.ID, *s.member, text, e.now()))
}

func (s *Session) rename(raw string) {
	name := strings.TrimSpace(raw)
	if err := validation.ValidateUserName(name); err != nil {
		s.reject(err)
		return
	}

	e, r := s.engine, s.room
	r.mu.Lock()
	oldName := s.member.Name
	s.member.Name = name
	e.logPresence(r, *s.member, room.ActionRenamed)
	e.hub.Broadcast(r.ID, MemberRenamedFrame{
		Kind:     KindMemberRenamed,
		MemberID: s.member.ID,
		OldName:  oldName,
		NewName:  name,
		Members:  r.memberList(),
	}, "")
	e.systemMessage(r, fmt.Sprintf("%s → %s", oldName, name))
	r.mu.Unlock()

	e.logger.Info("Member renamed", "room", r.ID, "member", s.MemberID(), "old_name", oldName, "new_name", name)
	if bus := e.eventBus(); bus != nil {
		e.published("MemberRenamed", events.MemberRenamedV1.Publish(bus, events.MemberRenamedEvent{
			RoomID:    r.ID,
			MemberID:  s.MemberID(),
			OldName:   oldName,
			NewName:   name,
			Timestamp: e.now(),
		}, nil))
	}
}
