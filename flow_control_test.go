package mqttflow

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlowController(t *testing.T) {
	t.Run("initial state", func(t *testing.T) {
		fc := NewFlowController(10)

		assert.Equal(t, uint16(10), fc.ReceiveMaximum())
		assert.Equal(t, uint16(10), fc.Available())
		assert.Equal(t, uint16(0), fc.InFlight())
	})

	t.Run("default receive maximum", func(t *testing.T) {
		fc := NewFlowController(0)

		assert.Equal(t, uint16(65535), fc.ReceiveMaximum())
	})

	t.Run("acquire and release", func(t *testing.T) {
		fc := NewFlowController(2)

		assert.True(t, fc.TryAcquire())
		assert.Equal(t, uint16(1), fc.Available())

		assert.True(t, fc.TryAcquire())
		assert.Equal(t, uint16(0), fc.Available())

		assert.False(t, fc.TryAcquire())

		fc.Release()
		assert.Equal(t, uint16(1), fc.Available())
		assert.True(t, fc.TryAcquire())
	})

	t.Run("release below zero is ignored", func(t *testing.T) {
		fc := NewFlowController(2)

		fc.Release()
		assert.Equal(t, uint16(0), fc.InFlight())
	})

	t.Run("shrinking the maximum below in-flight", func(t *testing.T) {
		fc := NewFlowController(3)

		fc.TryAcquire()
		fc.TryAcquire()
		fc.TryAcquire()

		fc.SetReceiveMaximum(2)
		assert.Equal(t, uint16(0), fc.Available())
		assert.False(t, fc.TryAcquire())

		fc.Release()
		fc.Release()
		assert.True(t, fc.TryAcquire())
	})

	t.Run("reset", func(t *testing.T) {
		fc := NewFlowController(2)

		fc.TryAcquire()
		fc.TryAcquire()
		fc.Reset()

		assert.Equal(t, uint16(0), fc.InFlight())
		assert.True(t, fc.TryAcquire())
	})
}

func TestFlowControllerConcurrency(t *testing.T) {
	fc := NewFlowController(50)

	var wg sync.WaitGroup
	acquired := make(chan struct{}, 1000)

	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				if fc.TryAcquire() {
					acquired <- struct{}{}
				}
			}
		}()
	}

	wg.Wait()
	close(acquired)

	assert.Equal(t, 50, len(acquired))
	assert.Equal(t, uint16(50), fc.InFlight())
}
