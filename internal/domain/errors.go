package domain

import "errors"

var (
	ErrProfileNotFound         = errors.New("profile not found")
	ErrBusinessProfileNotFound = errors.New("business profile not found")
	ErrConversationNotFound    = errors.New("conversation not found")
	ErrGoalNotFound            = errors.New("goal not found")
	ErrSessionNotFound         = errors.New("coaching session not found")
	ErrOrderNotFound           = errors.New("payment order not found")
	ErrDemoSessionNotFound     = errors.New("demo session not found")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid access token")

	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrAlreadySubscribed  = errors.New("subscription already active")
	ErrBillingDisabled    = errors.New("billing is not configured")
	ErrDemoLimitReached   = errors.New("demo message limit reached")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrProviderDisabled   = errors.New("provider is not configured")
)
