package controlplane

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeyType(t *testing.T) {
	k, err := ParseKeyType("Primary")
	require.NoError(t, err)
	assert.Equal(t, KeyPrimary, k)

	k, err = ParseKeyType("secondary")
	require.NoError(t, err)
	assert.Equal(t, KeySecondary, k)

	_, err = ParseKeyType("tertiary")
	assert.Error(t, err)
}

func TestAccount_Helpers(t *testing.T) {
	a := Account{FirstName: "Ada", LastName: "Lovelace", Groups: []string{"user", "apiadmin"}}
	assert.Equal(t, "Ada Lovelace", a.DisplayName())
	assert.True(t, a.HasGroup("apiadmin"))
	assert.False(t, a.HasGroup("ops"))
}
