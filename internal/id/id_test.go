package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUUIDv7_Ordered(t *testing.T) {
	a := NewUUIDv7()
	b := NewUUIDv7()

	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
	assert.Equal(t, byte('7'), a[14], "version nibble")
}

func TestParse(t *testing.T) {
	got, err := Parse("0190F3A2-7C2B-7D8E-9F00-112233445566")
	require.NoError(t, err)
	assert.Equal(t, "0190f3a2-7c2b-7d8e-9f00-112233445566", got)

	_, err = Parse("not-a-uuid")
	assert.Error(t, err)
}
