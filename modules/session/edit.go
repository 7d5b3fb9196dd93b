package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/example/collab-template-demo/domain/room"
	"github.com/example/collab-template-demo/domain/validation"
	"github.com/example/collab-template-demo/events"
)

var errTemplateLoad = errors.New("failed to load the template")

// requestEdit starts an AI edit. Only one edit-class command runs per room;
// a second one is rejected until the first settles.
func (s *Session) requestEdit(raw string, rawTemperature any) {
	instruction, err := validation.SanitizeInstruction(raw)
	if err != nil {
		s.engine.logger.Warn("Instruction rejected", "room", s.RoomID(), "member", s.MemberID(), "error", err)
		s.reject(err)
		return
	}

	e, r := s.engine, s.room
	temperature := validation.ResolveTemperature(rawTemperature, e.cfg.DefaultTemperature)

	r.mu.Lock()
	if r.pending != nil {
		r.mu.Unlock()
		s.reject(room.ErrEditInProgress)
		return
	}
	if e.baseCtx.Err() != nil {
		r.mu.Unlock()
		s.reject(room.ErrRoomUnavailable)
		return
	}
	edit := &room.PendingEdit{
		ID:          uuid.NewString(),
		RoomID:      r.ID,
		MemberID:    s.member.ID,
		MemberName:  s.member.Name,
		Instruction: instruction,
		Temperature: temperature,
		IssuedAt:    e.now(),
	}
	r.pending = edit
	document := r.document
	e.edits.Add(1)
	e.systemMessage(r, fmt.Sprintf("AI processing: \"%s\" (temperature %s)",
		instruction, strconv.FormatFloat(temperature, 'f', -1, 64)))
	r.mu.Unlock()

	e.logger.Info("AI edit started", "room", r.ID, "edit", edit.ID, "member", edit.MemberID, "temperature", temperature)

	go e.runEdit(r, edit, document)
}

func (e *Engine) runEdit(r *Room, edit *room.PendingEdit, document string) {
	defer e.edits.Done()

	ctx, cancel := context.WithTimeout(e.baseCtx, e.cfg.EditTimeout)
	defer cancel()

	result, err := e.generator.Rewrite(ctx, document, edit.Instruction, edit.Temperature)

	r.mu.Lock()
	r.pending = nil
	if err != nil {
		reason := failureReason(err)
		e.systemMessage(r, "AI edit failed: "+reason)
		r.mu.Unlock()

		e.logger.Warn("AI edit failed", "room", r.ID, "edit", edit.ID, "error", err)
		if bus := e.eventBus(); bus != nil {
			e.published("EditFailed", events.EditFailedV1.Publish(bus, events.EditFailedEvent{
				RoomID:    r.ID,
				EditID:    edit.ID,
				MemberID:  edit.MemberID,
				Reason:    reason,
				Timestamp: e.now(),
			}, nil))
		}
		return
	}

	r.document = result
	e.persistDocument(r)
	e.hub.Broadcast(r.ID, DocumentUpdateFrame{
		Kind:        KindDocumentUpdate,
		Document:    result,
		UpdatedBy:   edit.MemberName,
		UpdatedByID: edit.MemberID,
	}, "")
	e.systemMessage(r, fmt.Sprintf("%s ran an AI edit: \"%s\"", edit.MemberName, edit.Instruction))
	r.mu.Unlock()

	e.logger.Info("AI edit applied", "room", r.ID, "edit", edit.ID, "length", len(result))
	if bus := e.eventBus(); bus != nil {
		e.published("DocumentUpdated", events.DocumentUpdatedV1.Publish(bus, events.DocumentUpdatedEvent{
			RoomID:    r.ID,
			EditID:    edit.ID,
			Source:    events.SourceAI,
			UpdatedBy: edit.MemberName,
			Length:    len(result),
			Timestamp: e.now(),
		}, nil))
	}
}

// switchTemplate replaces the document with a catalog template.
func (s *Session) switchTemplate(raw string) {
	filename := validation.SanitizeURLParam(raw)
	if err := validation.ValidateFilename(filename); err != nil {
		s.engine.logger.Warn("Invalid template change attempt", "room", s.RoomID(), "member", s.MemberID(), "error", err)
		s.reject(err)
		return
	}

	e, r := s.engine, s.room
	r.mu.Lock()
	if r.pending != nil {
		r.mu.Unlock()
		s.reject(room.ErrEditInProgress)
		return
	}

	content, err := e.templates.Read(filename)
	if err != nil {
		r.mu.Unlock()
		e.logger.Warn("Template load failed", "room", r.ID, "file", filename, "error", err)
		s.reject(fmt.Errorf("%w: %w", errTemplateLoad, err))
		return
	}

	name := s.member.Name
	r.document = content
	r.templateFile = filename
	e.persistDocument(r)
	e.hub.Broadcast(r.ID, DocumentUpdateFrame{
		Kind:        KindDocumentUpdate,
		Document:    content,
		UpdatedBy:   name,
		UpdatedByID: s.member.ID,
	}, "")
	e.systemMessage(r, fmt.Sprintf("%s switched the template to %s", name, filename))
	r.mu.Unlock()

	e.logger.Info("Template switched", "room", r.ID, "member", s.MemberID(), "file", filename)
	if bus := e.eventBus(); bus != nil {
		e.published("DocumentUpdated", events.DocumentUpdatedV1.Publish(bus, events.DocumentUpdatedEvent{
			RoomID:    r.ID,
			Source:    events.SourceTemplate,
			UpdatedBy: name,
			Length:    len(content),
			Timestamp: e.now(),
		}, nil))
	}
}
