package watchdog

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBiteAndCalm(t *testing.T) {
	var bites, calms atomic.Int32
	d := New(
		WithName("position"),
		WithFoodDuration(20*time.Millisecond),
		WithHandFunction(func() { bites.Add(1) }),
		WithCalmFunction(func() { calms.Add(1) }),
	)
	defer d.Stop()

	require.Eventually(t, d.Bitten, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), bites.Load())

	d.Feed()
	assert.False(t, d.Bitten())
	assert.Equal(t, int32(1), calms.Load())

	// Feeding a calm dog does not run the calm function again.
	d.Feed()
	assert.Equal(t, int32(1), calms.Load())
}

func TestFedDogDoesNotBite(t *testing.T) {
	var bites atomic.Int32
	d := New(
		WithFoodDuration(50*time.Millisecond),
		WithHandFunction(func() { bites.Add(1) }),
	)
	defer d.Stop()

	for i := 0; i < 10; i++ {
		time.Sleep(10 * time.Millisecond)
		d.Feed()
	}
	assert.Equal(t, int32(0), bites.Load())
	assert.False(t, d.Bitten())
}
