package authclient

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCoordinatorSingleFlight(t *testing.T) {
	var co coordinator
	var calls int32

	started := make(chan struct{})
	release := make(chan struct{})

	refresh := func() (string, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		return "fresh-token", nil
	}

	results := make(chan string, 1)
	go func() {
		token, err := co.awaitFreshToken(refresh)
		assert.NoError(t, err)
		results <- token
	}()
	<-started

	// Everyone arriving while the refresh is in flight queues behind it
	// and must not invoke the callback themselves.
	const waiters = 4
	var wg sync.WaitGroup
	waiterTokens := make([]string, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := co.awaitFreshToken(func() (string, error) {
				t.Error("waiter must not run its own refresh")
				return "", nil
			})
			assert.NoError(t, err)
			waiterTokens[i] = token
		}(i)
	}

	// Give the waiters time to queue before releasing the refresher.
	for {
		co.mu.Lock()
		queued := len(co.waiters)
		co.mu.Unlock()
		if queued == waiters {
			break
		}
		time.Sleep(time.Millisecond)
	}
	close(release)

	assert.Equal(t, "fresh-token", <-results)
	wg.Wait()

	for i := 0; i < waiters; i++ {
		assert.Equal(t, "fresh-token", waiterTokens[i])
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCoordinatorFansOutFailure(t *testing.T) {
	var co coordinator
	refreshErr := errors.New("refresh rejected")

	started := make(chan struct{})
	release := make(chan struct{})

	go co.awaitFreshToken(func() (string, error) {
		close(started)
		<-release
		return "", refreshErr
	})
	<-started

	const waiters = 3
	errs := make(chan error, waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			_, err := co.awaitFreshToken(func() (string, error) {
				t.Error("waiter must not run its own refresh")
				return "", nil
			})
			errs <- err
		}()
	}

	for {
		co.mu.Lock()
		queued := len(co.waiters)
		co.mu.Unlock()
		if queued == waiters {
			break
		}
		time.Sleep(time.Millisecond)
	}
	close(release)

	for i := 0; i < waiters; i++ {
		assert.ErrorIs(t, <-errs, refreshErr)
	}
}

func TestCoordinatorResetsAfterCompletion(t *testing.T) {
	var co coordinator
	var calls int32

	refresh := func() (string, error) {
		atomic.AddInt32(&calls, 1)
		return "fresh-token", nil
	}

	token, err := co.awaitFreshToken(refresh)
	assert.NoError(t, err)
	assert.Equal(t, "fresh-token", token)

	// A later, independent failure round starts its own refresh.
	token, err = co.awaitFreshToken(refresh)
	assert.NoError(t, err)
	assert.Equal(t, "fresh-token", token)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
