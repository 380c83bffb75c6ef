package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	return New(keyring.NewArrayKeyring(nil))
}

func TestTokenRoundTrip(t *testing.T) {
	t.Setenv(TokenEnv, "")
	s := newTestStore()

	tok, err := s.Token()
	require.NoError(t, err)
	require.Empty(t, tok)

	_, err = s.RequireToken()
	require.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, s.SaveToken("secret-token"))
	tok, err = s.Token()
	require.NoError(t, err)
	require.Equal(t, "secret-token", tok)

	require.NoError(t, s.ClearToken())
	tok, err = s.Token()
	require.NoError(t, err)
	require.Empty(t, tok)
}

func TestTokenEnvOverride(t *testing.T) {
	t.Setenv(TokenEnv, "env-token")
	s := newTestStore()
	require.NoError(t, s.SaveToken("stored-token"))

	tok, err := s.Token()
	require.NoError(t, err)
	require.Equal(t, "env-token", tok)
}

func TestDeleteMissingKey(t *testing.T) {
	require.NoError(t, newTestStore().Delete("nope"))
}

func TestGetMissingKeyWrapsError(t *testing.T) {
	_, err := newTestStore().Get("nope")
	require.ErrorIs(t, err, keyring.ErrKeyNotFound)
}
