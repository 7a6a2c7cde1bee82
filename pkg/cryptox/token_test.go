package cryptox_test

import (
	"testing"

	"github.com/aussiebroadwan/authsession/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		size    int
		wantLen int
	}{
		{"128-bit token", cryptox.TokenSize128, 22},
		{"256-bit token", cryptox.TokenSize256, 43},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			token, err := cryptox.GenerateToken(tt.size)
			require.NoError(t, err)
			require.Len(t, token, tt.wantLen)

			other, err := cryptox.GenerateToken(tt.size)
			require.NoError(t, err)
			require.NotEqual(t, token, other)
		})
	}
}

func TestGenerateToken_InvalidSize(t *testing.T) {
	t.Parallel()

	for _, size := range []int{0, -1} {
		token, err := cryptox.GenerateToken(size)
		require.Error(t, err)
		require.Empty(t, token)
	}
	require.Panics(t, func() { cryptox.MustGenerateToken(0) })
}

func TestNewNonce(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{}, 100)
	for range 100 {
		n, err := cryptox.NewNonce()
		require.NoError(t, err)
		require.NotContains(t, seen, n)
		seen[n] = struct{}{}
	}
}

func TestFingerprintToken(t *testing.T) {
	t.Parallel()

	a := cryptox.FingerprintToken("test-token-1")
	require.Equal(t, a, cryptox.FingerprintToken("test-token-1"))
	require.NotEqual(t, a, cryptox.FingerprintToken("test-token-2"))
	require.Len(t, a, 43)
}
