package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concordium/ccdscan-go/internal/logger"
	"github.com/concordium/ccdscan-go/internal/types"
)

func TestValidatorKeyIsStablePlainInteger(t *testing.T) {
	assert.Equal(t, "validator:5", validatorKey(types.BakerID(5)))
	assert.Equal(t, "validator:0", validatorKey(types.BakerID(0)))
}

func TestCachePushPullValidatorRoundTrip(t *testing.T) {
	c, err := NewCache(logger.New("store", "ERROR"))
	require.NoError(t, err)

	assert.Nil(t, c.PullValidator(types.BakerID(9)))

	v := &types.Validator{ID: types.BakerID(9)}
	require.NoError(t, c.PushValidator(v))

	got := c.PullValidator(types.BakerID(9))
	require.NotNil(t, got)
	assert.Equal(t, types.BakerID(9), got.ID)

	c.InvalidateValidator(types.BakerID(9))
	assert.Nil(t, c.PullValidator(types.BakerID(9)))
}

func TestIdsToInt64(t *testing.T) {
	ids := []types.BakerID{1, 2, 3}
	assert.Equal(t, []int64{1, 2, 3}, idsToInt64(ids))
	assert.Empty(t, idsToInt64(nil))
}
