package domain

import "time"

// Service request statuses.
const (
	RequestStatusPending   = "PENDING"
	RequestStatusAccepted  = "ACCEPTED"
	RequestStatusRejected  = "REJECTED"
	RequestStatusCompleted = "COMPLETED"
	RequestStatusCancelled = "CANCELLED"
)

// Action names a lifecycle transition.
type Action string

// Lifecycle actions.
const (
	ActionAccept   Action = "accept"
	ActionReject   Action = "reject"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

// ServiceRequest is a customer's request for a provider's service.
// ServiceID and CustomerID never change after creation.
type ServiceRequest struct {
	ID            string     `json:"id"`
	ServiceID     string     `json:"service_id"`
	CustomerID    string     `json:"customer_id"`
	Status        string     `json:"status"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	TotalPrice    float64    `json:"total_price"`
	ReviewID      *string    `json:"review_id,omitempty"`
	Version       int        `json:"version"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// Read-model fields joined from the service and users.
	ServiceTitle string `json:"service_title,omitempty"`
	ProviderID   string `json:"provider_id,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
	ProviderName string `json:"provider_name,omitempty"`
}

// transitions is the lifecycle table. Terminal statuses have no entry.
var transitions = map[string]map[Action]string{
	RequestStatusPending: {
		ActionAccept: RequestStatusAccepted,
		ActionReject: RequestStatusRejected,
		ActionCancel: RequestStatusCancelled,
	},
	RequestStatusAccepted: {
		ActionComplete: RequestStatusCompleted,
		ActionCancel:   RequestStatusCancelled,
	},
}

// ValidRequestStatuses lists every status a request can be in.
func ValidRequestStatuses() []string {
	return []string{
		RequestStatusPending,
		RequestStatusAccepted,
		RequestStatusRejected,
		RequestStatusCompleted,
		RequestStatusCancelled,
	}
}

// IsValidRequestStatus reports whether status is a known request status.
func IsValidRequestStatus(status string) bool {
	for _, s := range ValidRequestStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether no action leaves status.
func IsTerminalStatus(status string) bool {
	return len(transitions[status]) == 0
}

// NextStatus returns the status that action leads to from status, and false
// when the table has no such edge.
func NextStatus(status string, action Action) (string, bool) {
	next, ok := transitions[status][action]
	return next, ok
}

// IsValidAction reports whether a is a known lifecycle action.
func IsValidAction(a Action) bool {
	switch a {
	case ActionAccept, ActionReject, ActionComplete, ActionCancel:
		return true
	}
	return false
}

// IsCustomer reports whether userID placed r.
func (r *ServiceRequest) IsCustomer(userID string) bool {
	return userID != "" && r.CustomerID == userID
}

// HasReview reports whether a review is attached to r.
func (r *ServiceRequest) HasReview() bool {
	return r.ReviewID != nil && *r.ReviewID != ""
}
