// Package session defines the media session contract between the playback
// engine and provider adapters, the two-slot registry that tracks which
// session is audible, and the provider readiness gate.
package session

import "time"

// Session is a single handle to an external streaming player.
//
// All operations may fail while the provider is warming up; callers treat a
// failing session as "not yet ready" and keep polling. Duration and Elapsed
// return ok=false until the provider has reported track metadata.
//
// Callback registration replaces any previously registered handler. Handlers
// are invoked from the adapter's own goroutine; implementations must not
// hold the caller's locks.
type Session interface {
	Load(source string) error
	Play() error
	Pause() error
	Stop() error
	Seek(offset time.Duration) error
	SetVolume(level float64) error

	Duration() (time.Duration, bool)
	Elapsed() (time.Duration, bool)

	OnReady(fn func())
	OnEnded(fn func())
	OnError(fn func(error))

	// Release tears the session down and returns its underlying player to
	// the provider. A released session must ignore further calls.
	Release()
}

// Factory creates provider-backed sessions. At most two sessions are live at
// a time (active and staging), so a factory needs at least two players to
// support crossfades.
type Factory interface {
	NewSession() (Session, error)
}
