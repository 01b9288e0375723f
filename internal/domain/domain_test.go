package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEntitlement_IsPro(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name string
		e    Entitlement
		want bool
	}{
		{"free tier", Entitlement{Tier: TierFree, Status: SubscriptionActive}, false},
		{"pro inactive", Entitlement{Tier: TierPro, Status: SubscriptionInactive, ExpiresAt: &future}, false},
		{"pro active no expiry", Entitlement{Tier: TierPro, Status: SubscriptionActive}, true},
		{"pro active future expiry", Entitlement{Tier: TierPro, Status: SubscriptionActive, ExpiresAt: &future}, true},
		{"pro active expired", Entitlement{Tier: TierPro, Status: SubscriptionActive, ExpiresAt: &past}, false},
		{"pro active expiring exactly now", Entitlement{Tier: TierPro, Status: SubscriptionActive, ExpiresAt: &now}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.e.IsPro(now))
		})
	}
}

func TestSessionStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, SessionScheduled.CanTransitionTo(SessionCompleted))
	assert.True(t, SessionScheduled.CanTransitionTo(SessionCancelled))
	assert.False(t, SessionScheduled.CanTransitionTo(SessionScheduled))
	assert.False(t, SessionCompleted.CanTransitionTo(SessionCancelled))
	assert.False(t, SessionCancelled.CanTransitionTo(SessionCompleted))
}

func TestFeature_RequiresPro(t *testing.T) {
	assert.False(t, FeatureChat.RequiresPro())
	assert.False(t, FeatureGoals.RequiresPro())
	assert.True(t, FeatureVoice.RequiresPro())
	assert.True(t, FeatureGeminiLive.RequiresPro())
	assert.True(t, FeatureBusinessInsights.RequiresPro())
}

func TestRoleAndGoalStatusValid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("owner").Valid())
	assert.True(t, GoalAbandoned.Valid())
	assert.False(t, GoalStatus("paused").Valid())
}

func TestOrderState_Final(t *testing.T) {
	assert.False(t, OrderPending.Final())
	assert.True(t, OrderCompleted.Final())
	assert.True(t, OrderFailed.Final())
}
