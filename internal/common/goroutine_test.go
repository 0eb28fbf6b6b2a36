package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSafeGo_RecoversPanic(t *testing.T) {
	logger := NewQuietLogger("error")
	done := make(chan struct{})

	SafeGo(logger, "panicky", func() {
		defer close(done)
		panic("boom")
	})
	<-done

	assert.Eventually(t, func() bool { return ActiveGoroutines() == 0 }, time.Second, 5*time.Millisecond)
}

func TestSafeGo_CountsRunningTasks(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	SafeGo(nil, "blocked", func() {
		close(started)
		<-release
	})
	<-started
	assert.GreaterOrEqual(t, ActiveGoroutines(), int64(1))

	close(release)
	assert.Eventually(t, func() bool { return ActiveGoroutines() == 0 }, time.Second, 5*time.Millisecond)
}
