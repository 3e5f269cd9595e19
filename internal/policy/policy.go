// Package policy decides whether an actor may perform an action on a
// marketplace resource. Decisions are pure: they read only their arguments.
package policy

import (
	"fmt"

	"github.com/Lnando2k21/projetofinal/internal/domain"
	apperrors "github.com/Lnando2k21/projetofinal/pkg/errors"
)

// Action is an operation subject to authorization.
type Action string

// Guarded actions.
const (
	CreateService   Action = "service.create"
	UpdateService   Action = "service.update"
	DeleteService   Action = "service.delete"
	CreateRequest   Action = "request.create"
	ViewRequest     Action = "request.view"
	AcceptRequest   Action = "request.accept"
	RejectRequest   Action = "request.reject"
	CompleteRequest Action = "request.complete"
	CancelRequest   Action = "request.cancel"
	CreateReview    Action = "review.create"
	UpdateReview    Action = "review.update"
	DeleteReview    Action = "review.delete"
)

// ForLifecycle maps a lifecycle action to its guarded action.
func ForLifecycle(a domain.Action) (Action, bool) {
	switch a {
	case domain.ActionAccept:
		return AcceptRequest, true
	case domain.ActionReject:
		return RejectRequest, true
	case domain.ActionComplete:
		return CompleteRequest, true
	case domain.ActionCancel:
		return CancelRequest, true
	}
	return "", false
}

// Actor is the authenticated caller.
type Actor struct {
	ID   string
	Role string
}

// Resource carries the entities a decision needs. Only the fields relevant
// to the action must be set: Service for service actions and for provider
// transitions, Request for request and review creation, Review for review
// mutations.
type Resource struct {
	Service *domain.Service
	Request *domain.ServiceRequest
	Review  *domain.Review
}

// Reason classifies a denial.
type Reason string

// Denial reasons.
const (
	ReasonNone               Reason = ""
	ReasonUnauthenticated    Reason = "unauthenticated"
	ReasonRoleViolation      Reason = "role_violation"
	ReasonOwnershipViolation Reason = "ownership_violation"
	ReasonInvalidState       Reason = "invalid_state"
	ReasonMissingResource    Reason = "missing_resource"
	ReasonUnknownAction      Reason = "unknown_action"
)

// Decision is the outcome of Decide.
type Decision struct {
	Allowed bool
	Reason  Reason
	Message string
}

var allow = Decision{Allowed: true}

func deny(reason Reason, format string, args ...any) Decision {
	return Decision{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// Err converts a denial into an application error, or nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case ReasonUnauthenticated:
		return apperrors.Unauthenticated(d.Message)
	case ReasonRoleViolation:
		return apperrors.RoleViolation(d.Message)
	case ReasonOwnershipViolation:
		return apperrors.OwnershipViolation(d.Message)
	case ReasonInvalidState:
		return apperrors.InvalidState(d.Message)
	default:
		return apperrors.Internal(fmt.Errorf("policy: %s", d.Message))
	}
}

// Decide evaluates action for actor against res. Ownership is always checked
// before resource state.
func Decide(actor Actor, action Action, res Resource) Decision {
	if actor.ID == "" {
		return deny(ReasonUnauthenticated, "authentication required")
	}

	switch action {
	case CreateService:
		if actor.Role != domain.RoleProvider {
			return deny(ReasonRoleViolation, "only providers can create services")
		}
		return allow

	case UpdateService, DeleteService:
		if res.Service == nil {
			return deny(ReasonMissingResource, "%s requires a service", action)
		}
		if !res.Service.IsOwnedBy(actor.ID) {
			return deny(ReasonOwnershipViolation, "only the provider who owns this service can modify it")
		}
		return allow

	case CreateRequest:
		if actor.Role != domain.RoleCustomer {
			return deny(ReasonRoleViolation, "only customers can request services")
		}
		return allow

	case ViewRequest:
		if res.Request == nil || res.Service == nil {
			return deny(ReasonMissingResource, "%s requires a request and its service", action)
		}
		if !res.Request.IsCustomer(actor.ID) && !res.Service.IsOwnedBy(actor.ID) {
			return deny(ReasonOwnershipViolation, "request is visible only to its customer and provider")
		}
		return allow

	case AcceptRequest, RejectRequest, CompleteRequest:
		if res.Request == nil || res.Service == nil {
			return deny(ReasonMissingResource, "%s requires a request and its service", action)
		}
		if !res.Service.IsOwnedBy(actor.ID) {
			return deny(ReasonOwnershipViolation, "only the provider of this service can %s the request", verb(action))
		}
		return allow

	case CancelRequest:
		if res.Request == nil {
			return deny(ReasonMissingResource, "%s requires a request", action)
		}
		if !res.Request.IsCustomer(actor.ID) {
			return deny(ReasonOwnershipViolation, "only the customer who placed the request can cancel it")
		}
		return allow

	case CreateReview:
		if res.Request == nil {
			return deny(ReasonMissingResource, "%s requires a request", action)
		}
		if !res.Request.IsCustomer(actor.ID) {
			return deny(ReasonOwnershipViolation, "only the customer of the request can review it")
		}
		if res.Request.Status != domain.RequestStatusCompleted {
			return deny(ReasonInvalidState, "only completed requests can be reviewed (status is %s)", res.Request.Status)
		}
		return allow

	case UpdateReview, DeleteReview:
		if res.Review == nil {
			return deny(ReasonMissingResource, "%s requires a review", action)
		}
		if !res.Review.IsAuthoredBy(actor.ID) {
			return deny(ReasonOwnershipViolation, "only the author can modify this review")
		}
		return allow
	}

	return deny(ReasonUnknownAction, "unknown action %q", action)
}

func verb(a Action) string {
	switch a {
	case AcceptRequest:
		return "accept"
	case RejectRequest:
		return "reject"
	case CompleteRequest:
		return "complete"
	}
	return string(a)
}
