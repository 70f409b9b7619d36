package scheduler

import "time"

// Clock abstracts wall-clock time so trigger computations are testable.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func NewClock() Clock { return realClock{} }
