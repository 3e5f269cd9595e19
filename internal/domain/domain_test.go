package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStatus_Table(t *testing.T) {
	tests := []struct {
		from   string
		action Action
		want   string
		ok     bool
	}{
		{RequestStatusPending, ActionAccept, RequestStatusAccepted, true},
		{RequestStatusPending, ActionReject, RequestStatusRejected, true},
		{RequestStatusPending, ActionCancel, RequestStatusCancelled, true},
		{RequestStatusPending, ActionComplete, "", false},
		{RequestStatusAccepted, ActionComplete, RequestStatusCompleted, true},
		{RequestStatusAccepted, ActionCancel, RequestStatusCancelled, true},
		{RequestStatusAccepted, ActionAccept, "", false},
		{RequestStatusAccepted, ActionReject, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"/"+string(tt.action), func(t *testing.T) {
			got, ok := NextStatus(tt.from, tt.action)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextStatus_TerminalStatusesHaveNoEdges(t *testing.T) {
	actions := []Action{ActionAccept, ActionReject, ActionComplete, ActionCancel}
	for _, status := range []string{RequestStatusRejected, RequestStatusCompleted, RequestStatusCancelled} {
		assert.True(t, IsTerminalStatus(status), status)
		for _, a := range actions {
			_, ok := NextStatus(status, a)
			assert.False(t, ok, "%s -%s-> should not exist", status, a)
		}
	}
	assert.False(t, IsTerminalStatus(RequestStatusPending))
	assert.False(t, IsTerminalStatus(RequestStatusAccepted))
}

func TestNextStatus_OnlyKnownStatusesReachable(t *testing.T) {
	reachable := map[string]bool{RequestStatusPending: true}
	frontier := []string{RequestStatusPending}
	for len(frontier) > 0 {
		s := frontier[0]
		frontier = frontier[1:]
		for _, a := range []Action{ActionAccept, ActionReject, ActionComplete, ActionCancel} {
			if next, ok := NextStatus(s, a); ok && !reachable[next] {
				reachable[next] = true
				frontier = append(frontier, next)
			}
		}
	}

	assert.Len(t, reachable, len(ValidRequestStatuses()))
	for s := range reachable {
		assert.True(t, IsValidRequestStatus(s))
	}
	assert.False(t, IsValidRequestStatus("DONE"))
}

func TestIsValidAction(t *testing.T) {
	assert.True(t, IsValidAction(ActionComplete))
	assert.False(t, IsValidAction("approve"))
}

func TestAggregate(t *testing.T) {
	assert.Equal(t, Rating{}, Aggregate(nil))
	assert.Equal(t, Rating{Average: 4.0, Count: 3}, Aggregate([]int{5, 3, 4}))
	assert.Equal(t, Rating{Average: 4.5, Count: 2}, Aggregate([]int{5, 4}))

	r := Aggregate([]int{1, 2})
	assert.InDelta(t, 1.5, r.Average, 1e-9)
}

func TestValidRating(t *testing.T) {
	for _, r := range []int{1, 3, 5} {
		assert.True(t, ValidRating(r), r)
	}
	for _, r := range []int{0, 6, -1} {
		assert.False(t, ValidRating(r), r)
	}
}

func TestValidComment(t *testing.T) {
	assert.True(t, ValidComment("Excellent!"))
	assert.True(t, ValidComment(strings.Repeat("a", 1000)))
	assert.True(t, ValidComment(strings.Repeat("ã", 1000)), "length counts characters, not bytes")
	assert.False(t, ValidComment("too short"))
	assert.False(t, ValidComment("   short    "))
	assert.False(t, ValidComment(strings.Repeat("a", 1001)))
}

func TestParseProviderRatingStrategy(t *testing.T) {
	s, err := ParseProviderRatingStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyOwnedServices, s)

	s, err = ParseProviderRatingStrategy("authored_reviews")
	require.NoError(t, err)
	assert.Equal(t, StrategyAuthoredReviews, s)

	_, err = ParseProviderRatingStrategy("everything")
	assert.Error(t, err)
}

func TestOwnershipHelpers(t *testing.T) {
	svc := &Service{ProviderID: "p1"}
	assert.True(t, svc.IsOwnedBy("p1"))
	assert.False(t, svc.IsOwnedBy(""))

	req := &ServiceRequest{CustomerID: "c1"}
	assert.True(t, req.IsCustomer("c1"))
	assert.False(t, req.IsCustomer("p1"))
	assert.False(t, req.HasReview())
	id := "rev-1"
	req.ReviewID = &id
	assert.True(t, req.HasReview())

	rev := &Review{ReviewerID: "c1"}
	assert.True(t, rev.IsAuthoredBy("c1"))
	assert.False(t, rev.IsAuthoredBy(""))
}

func TestUserProfile(t *testing.T) {
	u := &User{ID: "u1", Name: "Ana", Email: "ana@example.com", Role: RoleProvider, AverageRating: 4.5, ReviewCount: 2}
	p := u.Profile()
	assert.Equal(t, "Ana", p.Name)
	assert.Equal(t, 4.5, p.AverageRating)
	assert.True(t, u.IsProvider())
	assert.True(t, IsValidRole(RoleCustomer))
	assert.False(t, IsValidRole("ADMIN"))
}
