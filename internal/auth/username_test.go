package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quizie/quizie/internal/errors"
)

func TestUsernamePattern(t *testing.T) {
	tests := map[string]struct {
		username string
		valid    bool
	}{
		"should allow letters and digits": {username: "player1", valid: true},
		"should allow dots":               {username: "john.doe", valid: true},
		"should allow underscores":        {username: "john_doe", valid: true},
		"should reject hyphens":           {username: "john-doe", valid: false},
		"should reject spaces":            {username: "john doe", valid: false},
		"should reject symbols":           {username: "john!", valid: false},
		"should reject empty":             {username: "", valid: false},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tt.valid, usernameRx.MatchString(tt.username))
		})
	}
}

func TestService_Register_RejectsInvalidUsername(t *testing.T) {
	// Validation rejects before any storage access.
	s := NewService(Config{})

	_, err := s.Register(context.Background(), RegisterRequest{
		Username:    "john-doe",
		Email:       "john@example.com",
		Password:    "secret1",
		DisplayName: "John",
	})
	require.Error(t, err)
	require.Equal(t, errors.CodeInvalidArgument, errors.Convert(err).Code)
}
