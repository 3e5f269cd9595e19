package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lnando2k21/projetofinal/internal/domain"
	apperrors "github.com/Lnando2k21/projetofinal/pkg/errors"
)

func TestSyncUser_RefreshKeepsAggregates(t *testing.T) {
	f := newFixture(t, domain.StrategyOwnedServices)
	svc := f.service(t, provider, 50.0)
	f.review(t, f.completedRequest(t, svc, customer), customer, 4)
	ctx := context.Background()

	require.NoError(t, f.users.SyncUser(ctx, &domain.User{
		ID:        provider.ID,
		Name:      "Paula P. Silva",
		Email:     "paula@example.com",
		Role:      domain.RoleProvider,
		Verified:  true,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}))

	profile, err := f.users.GetProfile(ctx, provider.ID)
	require.NoError(t, err)
	assert.Equal(t, "Paula P. Silva", profile.Name)
	assert.True(t, profile.Verified)
	assert.Equal(t, 4.0, profile.AverageRating)
	assert.Equal(t, 1, profile.ReviewCount)
}

func TestSyncUser_Errors(t *testing.T) {
	f := newFixture(t, domain.StrategyOwnedServices)
	ctx := context.Background()

	tests := []struct {
		name string
		user domain.User
	}{
		{"missing id", domain.User{Name: "X", Role: domain.RoleCustomer}},
		{"unknown role", domain.User{ID: "u-9", Name: "X", Role: "ADMIN"}},
		{"missing name", domain.User{ID: "u-9", Role: domain.RoleCustomer}},
		{"role change", domain.User{ID: customer.ID, Name: "Carla", Role: domain.RoleProvider}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := tt.user
			assert.ErrorIs(t, f.users.SyncUser(ctx, &u), apperrors.ErrValidation)
		})
	}

	stored, err := f.users.GetProfile(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, stored.Role)
}

func TestGetProfile_NotFound(t *testing.T) {
	f := newFixture(t, domain.StrategyOwnedServices)

	_, err := f.users.GetProfile(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
