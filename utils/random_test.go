package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode_Length(t *testing.T) {
	code, err := GenerateCode(8)
	require.NoError(t, err)

	assert.Len(t, code, 16) // hex-encoded: 2 chars per byte
	assert.Equal(t, strings.ToUpper(code), code)
}

func TestGenerateCode_Unique(t *testing.T) {
	a, err := GenerateCode(16)
	require.NoError(t, err)
	b, err := GenerateCode(16)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestGenerateOTP_NumericOnly(t *testing.T) {
	otp, err := GenerateOTP(6)
	require.NoError(t, err)

	assert.Len(t, otp, 6)
	for _, c := range otp {
		assert.True(t, c >= '0' && c <= '9')
	}
}

func TestGenerateTxID_HasPrefix(t *testing.T) {
	txID, err := GenerateTxID()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(txID, "tx_"))
	assert.Equal(t, strings.ToLower(txID), txID)
}
