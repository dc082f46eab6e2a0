package gas

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitedGasSource(t *testing.T) {
	inner := &fakeGasPrice{wei: big.NewInt(30e9)}
	source := NewRateLimitedGasSource(inner, 1000, 2)

	for i := 0; i < 3; i++ {
		wei, err := source.SuggestGasPrice(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(30e9), wei.Int64())
	}
	assert.Equal(t, 3, inner.calls)
}

func TestRateLimitedGasSourceCancelled(t *testing.T) {
	inner := &fakeGasPrice{wei: big.NewInt(1)}
	source := NewRateLimitedGasSource(inner, 0.001, 1)

	_, err := source.SuggestGasPrice(context.Background())
	require.NoError(t, err)

	// the bucket is empty, so the second call waits and sees the cancellation
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = source.SuggestGasPrice(ctx)
	assert.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}
