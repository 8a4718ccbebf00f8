package room_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quizie/quizie/internal/errors"
	"github.com/quizie/quizie/internal/room"
)

func TestService_Create_NameValidation(t *testing.T) {
	// Name validation runs before any storage access.
	s := room.NewService(room.Config{})

	tests := map[string]struct {
		name string
	}{
		"should reject a padded short name": {
			name: "   ab   ",
		},

		"should reject a two-rune name that is long in bytes": {
			name: "ひと",
		},

		"should reject a name over 100 characters": {
			name: strings.Repeat("x", 101),
		},

		"should reject a blank name": {
			name: "      ",
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			_, err := s.Create(context.Background(), room.CreateRequest{
				HostID: "host",
				Name:   tt.name,
			})
			require.Error(t, err)
			require.Equal(t, errors.CodeInvalidArgument, errors.Convert(err).Code)
		})
	}
}
