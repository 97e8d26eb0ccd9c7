package exception

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunRecoversPanic(t *testing.T) {
	ok := Run("boom", func() { panic("boom") })
	assert.False(t, ok)

	ok = Run("fine", func() {})
	assert.True(t, ok)
}

func TestSafeGoRunsFunction(t *testing.T) {
	done := make(chan struct{})
	SafeGo("worker", func() {
		defer close(done)
		panic("worker failed")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SafeGo did not run the function")
	}
}
