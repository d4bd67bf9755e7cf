package debounce_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/draup/assetexplorer/explorer/pkg/debounce"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestDebouncer(t *testing.T) {
	t.Parallel()

	t.Run("only the last trigger fires", func(t *testing.T) {
		t.Parallel()
		clock := clockwork.NewFakeClock()
		d := debounce.New(clock, 500*time.Millisecond)

		var fired atomic.Int32
		var last atomic.Value
		for _, v := range []string{"a", "az", "azu"} {
			d.Trigger(func() {
				fired.Add(1)
				last.Store(v)
			})
			clock.Advance(200 * time.Millisecond)
		}
		assert.Zero(t, fired.Load(), "each keystroke restarts the delay")
		assert.True(t, d.Pending())

		clock.Advance(300 * time.Millisecond)
		assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)
		assert.Equal(t, "azu", last.Load())
		assert.False(t, d.Pending())

		clock.Advance(time.Second)
		time.Sleep(10 * time.Millisecond)
		assert.Equal(t, int32(1), fired.Load())
	})

	t.Run("flush runs pending immediately", func(t *testing.T) {
		t.Parallel()
		clock := clockwork.NewFakeClock()
		d := debounce.New(clock, 0)
		assert.Equal(t, debounce.DefaultDelay, d.Delay())

		var fired atomic.Int32
		d.Trigger(func() { fired.Add(1) })
		assert.True(t, d.Flush())
		assert.Equal(t, int32(1), fired.Load())
		assert.False(t, d.Flush())

		clock.Advance(time.Second)
		time.Sleep(10 * time.Millisecond)
		assert.Equal(t, int32(1), fired.Load())
	})

	t.Run("stop cancels", func(t *testing.T) {
		t.Parallel()
		clock := clockwork.NewFakeClock()
		d := debounce.New(clock, 500*time.Millisecond)

		var fired atomic.Int32
		d.Trigger(func() { fired.Add(1) })
		assert.True(t, d.Stop())
		assert.False(t, d.Stop())

		clock.Advance(time.Second)
		time.Sleep(10 * time.Millisecond)
		assert.Zero(t, fired.Load())
	})
}
