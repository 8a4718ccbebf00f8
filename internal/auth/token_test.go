package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quizie/quizie/internal/auth"
)

func TestTokenIssuer_Pair(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", 0, 0)

	pair, err := issuer.Pair("u1")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	userID, err := issuer.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "u1", userID)
}

func TestTokenIssuer_VerifyAccess(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour, 24*time.Hour)

	tests := map[string]struct {
		token func(t *testing.T) string
	}{
		"should reject a refresh token used as an access token": {
			token: func(t *testing.T) string {
				pair, err := issuer.Pair("u1")
				require.NoError(t, err)
				return pair.RefreshToken
			},
		},

		"should reject a token signed with another secret": {
			token: func(t *testing.T) string {
				other := auth.NewTokenIssuer("wrong-secret", time.Hour, 24*time.Hour)
				pair, err := other.Pair("u1")
				require.NoError(t, err)
				return pair.AccessToken
			},
		},

		"should reject an expired token": {
			token: func(t *testing.T) string {
				expired := auth.NewTokenIssuer("test-secret", -time.Minute, 24*time.Hour)
				pair, err := expired.Pair("u1")
				require.NoError(t, err)
				return pair.AccessToken
			},
		},

		"should reject garbage": {
			token: func(t *testing.T) string {
				return "not.a.token"
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := issuer.VerifyAccess(tt.token(t))
			require.Error(t, err)
		})
	}
}
