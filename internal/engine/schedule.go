package engine

import "time"

// Scheduler runs fn after d on some goroutine and returns a function that
// cancels the call, reporting false if it already fired. The engine only
// uses it to enqueue a continuation, so fn never touches engine state
// directly.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

// WallScheduler schedules on the wall clock via time.AfterFunc.
type WallScheduler struct{}

func (WallScheduler) AfterFunc(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}

// ImmediateScheduler calls fn synchronously, ignoring the delay. One-shot
// tools use it with Flush to play everything without waiting.
type ImmediateScheduler struct{}

func (ImmediateScheduler) AfterFunc(_ time.Duration, fn func()) func() bool {
	fn()
	return func() bool { return false }
}
