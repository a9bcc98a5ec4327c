package envfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBase_Order(t *testing.T) {
	entries := Base(BaseParams{
		Domain:          "example.com",
		AdminEmail:      "admin@example.com",
		MasterPassword:  "m",
		AdminHash:       "h",
		StorageRootUser: "admin",
	})

	s, err := New(entries...)
	require.NoError(t, err)
	assert.Equal(t, []string{
		KeyDomain, KeyAdminEmail, KeyMasterPassword, KeyPortainerAdminHash, KeyStorageRootUser,
	}, s.Keys())
}

func TestStorage_AppendsAfterBase(t *testing.T) {
	s, err := New(Base(BaseParams{Domain: "example.com"})...)
	require.NoError(t, err)

	for _, e := range Storage("chatwoot", "AK", "SK") {
		require.NoError(t, s.Append(e.Key, e.Value))
	}

	keys := s.Keys()
	assert.Equal(t, KeyDomain, keys[0])
	assert.Equal(t, []string{KeyStorageBucket, KeyStorageAccessKey, KeyStorageSecretKey}, keys[len(keys)-3:])
}
