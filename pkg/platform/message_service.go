package platform

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// maxReplyDepth bounds the parent walk used to resolve reply ownership.
const maxReplyDepth = 8

// Message operations

func (s *service) SubmitMessage(ctx context.Context, req SubmitMessageRequest) (*Message, error) {
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}

	tenant, err := s.repository.GetTenant(ctx, req.TenantID)
	if err != nil {
		return nil, storeError("tenant", "load", err)
	}
	if !tenant.IsPublic() {
		return nil, NotFoundError("tenant")
	}

	now := s.clock()
	owner := tenant.ID
	message := &Message{
		ID:            uuid.New(),
		OwnerTenantID: &owner,
		SenderName:    strings.TrimSpace(req.SenderName),
		SenderEmail:   normalizeEmail(req.SenderEmail),
		Subject:       strings.TrimSpace(req.Subject),
		Body:          req.Body,
		ApprovalState: ApprovalPending,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repository.CreateMessage(ctx, message); err != nil {
		return nil, storeError("message", "create", err)
	}

	s.logger.Info("Message submitted", "message_id", message.ID.String(), "tenant_id", owner.String())
	return message, nil
}

func (s *service) GetMessage(ctx context.Context, actor *Actor, id uuid.UUID) (*Message, error) {
	if err := RequireAnyAdmin(actor); err != nil {
		return nil, err
	}
	message, _, err := s.loadOwnedMessage(ctx, actor, id, TransitionEdit)
	if err != nil {
		return nil, err
	}
	return message, nil
}

func (s *service) ListMessages(ctx context.Context, actor *Actor, req ListMessagesRequest) ([]*Message, error) {
	if err := RequireAnyAdmin(actor); err != nil {
		return nil, err
	}

	filter := MessageFilter{
		ApprovalState: req.ApprovalState,
		Limit:         clampLimit(req.Limit),
		Offset:        req.Offset,
	}

	if req.ParentID != nil {
		// Replies carry no owner; the thread is authorized through its parent.
		if _, _, err := s.loadOwnedMessage(ctx, actor, *req.ParentID, TransitionEdit); err != nil {
			return nil, err
		}
		filter.ParentID = req.ParentID
	} else {
		filter.TenantID = ScopeTenantFilter(actor, req.TenantID)
	}

	messages, err := s.repository.ListMessages(ctx, filter)
	if err != nil {
		return nil, storeError("message", "list", err)
	}
	return messages, nil
}

func (s *service) ReplyMessage(ctx context.Context, actor *Actor, id uuid.UUID, req ReplyMessageRequest) (*Message, error) {
	if err := RequireAnyAdmin(actor); err != nil {
		return nil, err
	}

	parent, owner, err := s.loadOwnedMessage(ctx, actor, id, TransitionCreate)
	if err != nil {
		return nil, err
	}
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}
	if s.mailer == nil {
		return nil, InternalError("reply to message", fmt.Errorf("no mailer configured"))
	}

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = replySubject(parent.Subject)
	}

	now := s.clock()
	parentID := parent.ID
	createdBy := actor.ID
	reply := &Message{
		ID:            uuid.New(),
		ParentID:      &parentID,
		SenderName:    actor.Email,
		SenderEmail:   actor.Email,
		Subject:       subject,
		Body:          req.Body,
		ApprovalState: ApprovalPending,
		Active:        true,
		CreatedBy:     &createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repository.CreateMessage(ctx, reply); err != nil {
		return nil, storeError("message", "create", err)
	}

	replyTo := actor.Email
	if tenant, err := s.repository.GetTenant(ctx, owner); err == nil && tenant.ContactEmail != "" {
		replyTo = tenant.ContactEmail
	}

	mail := Mail{
		To:      parent.SenderEmail,
		ReplyTo: replyTo,
		Subject: subject,
		Body:    req.Body,
	}
	if err := s.mailer.Send(ctx, mail); err != nil {
		if delErr := s.repository.DeleteMessage(ctx, reply.ID); delErr != nil {
			s.logger.Error("Failed to remove undelivered reply", "message_id", reply.ID.String(), "err", delErr)
		}
		return nil, InternalError("send reply", err)
	}

	s.logger.Info("Message reply sent", "message_id", reply.ID.String(), "parent_id", parentID.String())
	return reply, nil
}

func (s *service) DeleteMessage(ctx context.Context, actor *Actor, id uuid.UUID) error {
	if err := RequireAnyAdmin(actor); err != nil {
		return err
	}
	if _, _, err := s.loadOwnedMessage(ctx, actor, id, TransitionDelete); err != nil {
		return err
	}
	if err := s.repository.DeleteMessage(ctx, id); err != nil {
		return storeError("message", "delete", err)
	}
	return nil
}

func (s *service) ApproveMessage(ctx context.Context, actor *Actor, id uuid.UUID) (*Message, error) {
	return s.decideMessage(ctx, actor, id, TransitionApprove)
}

func (s *service) RejectMessage(ctx context.Context, actor *Actor, id uuid.UUID) (*Message, error) {
	return s.decideMessage(ctx, actor, id, TransitionReject)
}

func (s *service) decideMessage(ctx context.Context, actor *Actor, id uuid.UUID, t Transition) (*Message, error) {
	if err := AuthorizeTransition(actor, t, uuid.Nil); err != nil {
		return nil, err
	}

	message, err := s.repository.GetMessage(ctx, id)
	if err != nil {
		return nil, storeError("message", "load", err)
	}

	next, err := ApplyDecision(message.ApprovalState, t)
	if err != nil {
		return nil, err
	}
	if next == message.ApprovalState {
		return message, nil
	}

	message.ApprovalState = next
	message.UpdatedAt = s.clock()
	if err := s.repository.UpdateMessage(ctx, message); err != nil {
		return nil, storeError("message", "update", err)
	}
	return message, nil
}

func (s *service) SetMessageActive(ctx context.Context, actor *Actor, id uuid.UUID, active bool) (*Message, error) {
	if err := AuthorizeTransition(actor, TransitionActivate, uuid.Nil); err != nil {
		return nil, err
	}

	message, err := s.repository.GetMessage(ctx, id)
	if err != nil {
		return nil, storeError("message", "load", err)
	}
	if message.Active == active {
		return message, nil
	}

	message.Active = active
	message.UpdatedAt = s.clock()
	if err := s.repository.UpdateMessage(ctx, message); err != nil {
		return nil, storeError("message", "update", err)
	}
	return message, nil
}

// loadOwnedMessage loads a message, resolves its owning tenant and
// authorizes t against it.
func (s *service) loadOwnedMessage(ctx context.Context, actor *Actor, id uuid.UUID, t Transition) (*Message, uuid.UUID, error) {
	message, err := s.repository.GetMessage(ctx, id)
	if err != nil {
		return nil, uuid.Nil, storeError("message", "load", err)
	}
	owner, err := s.messageOwner(ctx, message)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if err := AuthorizeTransition(actor, t, owner); err != nil {
		return nil, uuid.Nil, err
	}
	return message, owner, nil
}

// messageOwner walks the parent chain until it finds an owned message.
func (s *service) messageOwner(ctx context.Context, message *Message) (uuid.UUID, error) {
	current := message
	for depth := 0; depth <= maxReplyDepth; depth++ {
		if current.OwnerTenantID != nil {
			return *current.OwnerTenantID, nil
		}
		if current.ParentID == nil {
			break
		}
		parent, err := s.repository.GetMessage(ctx, *current.ParentID)
		if err != nil {
			return uuid.Nil, storeError("message", "load parent", err)
		}
		current = parent
	}
	return uuid.Nil, InternalError("resolve message owner", fmt.Errorf("message %s has no owning tenant", message.ID))
}

func replySubject(subject string) string {
	if subject == "" {
		return "Re: your message"
	}
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}
