package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountIdentifierIsDeterministic(t *testing.T) {
	a := DefaultAccount("alice")
	b := NewAccountIdentifier("alice", DefaultSubaccount)
	assert.Equal(t, a, b)

	var sub Subaccount
	sub[31] = 1
	assert.NotEqual(t, a, NewAccountIdentifier("alice", sub))
	assert.NotEqual(t, a, DefaultAccount("bob"))
	assert.Len(t, a.String(), 64)
}

func TestAccountIdentifierJSON(t *testing.T) {
	id := DefaultAccount("alice")
	raw, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"`+id.String()+`"`, string(raw))

	var back AccountIdentifier
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, id, back)

	require.Error(t, json.Unmarshal([]byte(`"abcd"`), &back))
	require.Error(t, json.Unmarshal([]byte(`"zz"`), &back))
}
