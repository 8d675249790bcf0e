package platform

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Transition names a lifecycle operation on a moderated resource.
type Transition string

const (
	TransitionCreate   Transition = "create"
	TransitionEdit     Transition = "edit"
	TransitionApprove  Transition = "approve"
	TransitionReject   Transition = "reject"
	TransitionFeature  Transition = "feature"
	TransitionActivate Transition = "activate"
	TransitionDelete   Transition = "delete"
)

type transitionRule struct {
	platformOnly bool
	ownership    bool
}

var transitionRules = map[Transition]transitionRule{
	TransitionCreate:   {ownership: true},
	TransitionEdit:     {ownership: true},
	TransitionDelete:   {ownership: true},
	TransitionApprove:  {platformOnly: true},
	TransitionReject:   {platformOnly: true},
	TransitionFeature:  {platformOnly: true},
	TransitionActivate: {platformOnly: true},
}

// AuthorizeTransition checks that actor may perform t on a resource owned by
// owner. It runs before any write.
func AuthorizeTransition(actor *Actor, t Transition, owner uuid.UUID) error {
	rule, ok := transitionRules[t]
	if !ok {
		return InternalError("authorize transition", fmt.Errorf("unknown transition %q", t))
	}
	if rule.platformOnly {
		return RequirePlatformAdmin(actor)
	}
	if rule.ownership {
		return CheckOwnership(actor, owner)
	}
	return RequireAnyAdmin(actor)
}

// NewLifecycle returns the initial state for a freshly created resource.
// Approval always starts pending; publication honors the request.
func NewLifecycle(requested PublicationState, now time.Time) (Lifecycle, error) {
	if requested == "" {
		requested = PublicationDraft
	}
	if !requested.IsValid() {
		return Lifecycle{}, FieldError("publication_state", "must be draft or published")
	}
	l := Lifecycle{
		ApprovalState:    ApprovalPending,
		PublicationState: PublicationDraft,
	}
	l.SetPublication(requested, now)
	return l, nil
}

// SetPublication changes the publication state, stamping PublishedAt the
// first time it becomes published and clearing it on revert to draft.
func (l *Lifecycle) SetPublication(state PublicationState, now time.Time) {
	switch state {
	case PublicationPublished:
		if l.PublicationState != PublicationPublished || l.PublishedAt == nil {
			t := now.UTC()
			l.PublishedAt = &t
		}
	case PublicationDraft:
		l.PublishedAt = nil
	}
	l.PublicationState = state
}

// ApplyDecision sets the approval state for approve or reject. Repeating
// the same decision is a no-op success.
func ApplyDecision(current ApprovalState, t Transition) (ApprovalState, error) {
	switch t {
	case TransitionApprove:
		return ApprovalApproved, nil
	case TransitionReject:
		return ApprovalRejected, nil
	}
	return current, InternalError("apply decision", fmt.Errorf("transition %q is not a moderation decision", t))
}

// DecisionTransition maps a requested approval state onto its transition.
func DecisionTransition(state ApprovalState) (Transition, error) {
	switch state {
	case ApprovalApproved:
		return TransitionApprove, nil
	case ApprovalRejected:
		return TransitionReject, nil
	}
	return "", FieldError("approval_state", "must be approved or rejected")
}
