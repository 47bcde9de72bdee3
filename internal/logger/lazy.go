package logger

import "sync"

// Lazy builds a Dispatcher on first use. Concurrent first calls to Get share
// a single construction and all observe its result.
type Lazy struct {
	once  sync.Once
	build func() (*Dispatcher, error)
	d     *Dispatcher
	err   error
}

func NewLazy(build func() (*Dispatcher, error)) *Lazy {
	return &Lazy{build: build}
}

// Get returns the dispatcher, building it if needed. A failed build is not
// retried.
func (l *Lazy) Get() (*Dispatcher, error) {
	l.once.Do(func() {
		l.d, l.err = l.build()
	})
	return l.d, l.err
}
