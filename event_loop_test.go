package mqttflow

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoop(t *testing.T) {
	t.Run("runs tasks in submission order", func(t *testing.T) {
		loop := NewLoop()

		var mu sync.Mutex
		var order []int

		for i := range 100 {
			require.True(t, loop.Submit(func() {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
			}))
		}

		loop.Close()
		loop.Wait()

		require.Len(t, order, 100)
		for i, v := range order {
			assert.Equal(t, i, v)
		}
	})

	t.Run("close drains queued tasks", func(t *testing.T) {
		loop := NewLoop()

		var mu sync.Mutex
		ran := 0
		for range 10 {
			loop.Submit(func() {
				mu.Lock()
				ran++
				mu.Unlock()
			})
		}

		loop.Close()
		loop.Wait()

		assert.Equal(t, 10, ran)
	})

	t.Run("submit after close is rejected", func(t *testing.T) {
		loop := NewLoop()
		loop.Close()
		loop.Wait()

		assert.False(t, loop.Submit(func() { t.Error("must not run") }))
	})

	t.Run("close is idempotent", func(t *testing.T) {
		loop := NewLoop()
		loop.Close()
		loop.Close()
		loop.Wait()
	})

	t.Run("submissions from the loop itself run", func(t *testing.T) {
		loop := NewLoop()

		done := make(chan struct{})
		loop.Submit(func() {
			loop.Submit(func() { close(done) })
		})

		<-done
		loop.Close()
		loop.Wait()
	})
}
