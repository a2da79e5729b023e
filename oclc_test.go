package sierramarc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOclcNumber(t *testing.T) {
	cases := []struct {
		arg       string
		without   string
		with      string
		hasPrefix bool
	}{
		{"ocm00012345", "12345", "ocm00012345", true},
		{"ocm12345678", "12345678", "ocm12345678", true},
		{"OCM12345678", "12345678", "ocm12345678", true},
		{"ocn123456789", "123456789", "ocn123456789", true},
		{"on1234567890", "1234567890", "on1234567890", true},
		{"(OCoLC)1234", "1234", "ocm00001234", true},
		{"(OCoLC)00123456789", "123456789", "ocn123456789", true},
		{"00012345", "12345", "ocm00012345", false},
		{"1234567890", "1234567890", "on1234567890", false},
		{" 123 ", "123", "ocm00000123", false},
	}
	for _, c := range cases {
		t.Run(c.arg, func(t *testing.T) {
			n, err := NewOclcNumber(c.arg)
			require.NoError(t, err)
			assert.Equal(t, c.arg, n.Value())
			assert.Equal(t, c.without, n.WithoutPrefix())
			assert.Equal(t, c.without, n.String())
			assert.Equal(t, c.with, n.WithPrefix())
			assert.Equal(t, c.hasPrefix, n.HasPrefix())
		})
	}
}

func TestNewOclcNumberInvalid(t *testing.T) {
	for _, arg := range []string{"", "foo", "ocm123", "ocn12345678", "on123", "(OCoLC)", "(DLC)12345", "0", "000", "12-345"} {
		t.Run(arg, func(t *testing.T) {
			_, err := NewOclcNumber(arg)
			assert.True(t, errors.Is(err, ErrInvalidOclcNumber), "got %v", err)
			assert.False(t, IsValidOclcNumber(arg))
		})
	}
}

func TestOclcNumberFromInt(t *testing.T) {
	n, err := OclcNumberFromInt(12345)
	require.NoError(t, err)
	assert.Equal(t, "12345", n.WithoutPrefix())
	assert.Equal(t, "ocm00012345", n.WithPrefix())
	assert.False(t, n.HasPrefix())

	for _, arg := range []int{0, -1} {
		_, err := OclcNumberFromInt(arg)
		assert.True(t, errors.Is(err, ErrInvalidOclcNumber))
	}
}
