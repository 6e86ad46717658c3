package identity

import (
	"sync"

	"github.com/google/uuid"
)

// attempt is one acquisition. It resolves at most once; later resolutions
// are dropped.
type attempt struct {
	id   string
	once sync.Once
	done chan struct{}

	credential string
	ok         bool
	err        error
}

func newAttempt() *attempt {
	return &attempt{
		id:   uuid.NewString(),
		done: make(chan struct{}),
	}
}

// resolve records the outcome and reports whether this call was the one
// that resolved the attempt.
func (a *attempt) resolve(credential string, ok bool, err error) bool {
	resolved := false
	a.once.Do(func() {
		a.credential = credential
		a.ok = ok
		a.err = err
		resolved = true
		close(a.done)
	})
	return resolved
}

// abandon resolves the attempt without an outcome so late callbacks are
// dropped.
func (a *attempt) abandon() {
	a.resolve("", false, nil)
}

// result must only be called after done is closed.
func (a *attempt) result() (string, error) {
	if a.err != nil {
		return "", a.err
	}
	if !a.ok {
		return "", ErrSuperseded
	}
	return a.credential, nil
}
