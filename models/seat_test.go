package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeatView_AvailableOmitsLockFields(t *testing.T) {
	view := SeatView{
		ID:     "A1",
		Row:    "A",
		Number: 1,
		Tier:   TierStandard,
		Price:  1500,
		State:  ViewAvailable,
	}

	data, err := json.Marshal(view)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "lockedBy")
	assert.NotContains(t, string(data), "ttl")
}

func TestSeatView_LockedIncludesHolderAndTTL(t *testing.T) {
	view := SeatView{
		ID:       "A1",
		State:    ViewLocked,
		LockedBy: "user-1",
		TTL:      120,
	}

	data, err := json.Marshal(view)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "user-1", decoded["lockedBy"])
	assert.Equal(t, float64(120), decoded["ttl"])
	assert.Equal(t, "locked", decoded["state"])
}
