package authclient

import (
	"sync"
)

type refreshResult struct {
	token string
	err   error
}

// coordinator guarantees single-flight refresh: when several calls fail
// authorization at once, exactly one performs the refresh and the rest
// wait for its outcome. Waiters are drained in FIFO order before the
// refreshing flag clears, so every queued caller observes the same
// result, success or failure.
type coordinator struct {
	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshResult
}

func (co *coordinator) awaitFreshToken(refresh func() (string, error)) (string, error) {
	co.mu.Lock()
	if co.refreshing {
		ch := make(chan refreshResult, 1)
		co.waiters = append(co.waiters, ch)
		co.mu.Unlock()

		res := <-ch
		return res.token, res.err
	}
	co.refreshing = true
	co.mu.Unlock()

	token, err := refresh()
	result := refreshResult{token: token, err: err}

	co.mu.Lock()
	waiters := co.waiters
	co.waiters = nil
	co.refreshing = false
	co.mu.Unlock()

	for _, ch := range waiters {
		ch <- result
	}

	return token, err
}
