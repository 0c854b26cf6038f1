package booking

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_CoalescesBursts(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var calls, last atomic.Int32

	for i := 1; i <= 5; i++ {
		d.Schedule(func() {
			calls.Add(1)
			last.Store(int32(i))
		})
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	d.Wait()
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(5), last.Load())
	assert.False(t, d.Pending())
}

func TestDebouncer_Flush(t *testing.T) {
	d := NewDebouncer(time.Hour)
	var calls atomic.Int32

	d.Schedule(func() { calls.Add(1) })
	assert.True(t, d.Pending())

	d.Flush()
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, d.Pending())

	// nothing pending, nothing runs
	d.Flush()
	assert.Equal(t, int32(1), calls.Load())
	d.Wait()
}

func TestDebouncer_FlushWaitsForRunningCall(t *testing.T) {
	d := NewDebouncer(time.Millisecond)
	started := make(chan struct{})
	var done atomic.Bool

	d.Schedule(func() {
		close(started)
		time.Sleep(100 * time.Millisecond)
		done.Store(true)
	})

	<-started
	d.Flush()
	assert.True(t, done.Load(), "Flush returned before the running call finished")
	d.Wait()
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	var calls atomic.Int32

	d.Schedule(func() { calls.Add(1) })
	d.Cancel()
	d.Wait()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
	assert.False(t, d.Pending())
}
