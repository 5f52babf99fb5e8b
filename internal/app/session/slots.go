package session

// Slots is the two-slot session registry: at most one active (audible,
// authoritative for playback state) and at most one staging (preloading the
// next track during a transition) session.
//
// Slots carries no locking of its own; the engine serializes all access
// through its state mutex. Displaced sessions are returned to the caller,
// which is responsible for stopping and releasing them.
type Slots struct {
	active  Session
	staging Session
}

// Active returns the active session, or nil.
func (s *Slots) Active() Session {
	return s.active
}

// Staging returns the staging session, or nil.
func (s *Slots) Staging() Session {
	return s.staging
}

// SetActive installs sess as the active session and returns the displaced
// one, if any.
func (s *Slots) SetActive(sess Session) Session {
	prev := s.active
	s.active = sess
	return prev
}

// Stage installs sess as the staging session and returns the displaced one,
// if any.
func (s *Slots) Stage(sess Session) Session {
	prev := s.staging
	s.staging = sess
	return prev
}

// Promote moves the staging session into the active slot and returns the
// retired active session. Promoting with an empty staging slot is a no-op
// returning nil, which gives the swap coordinator its idempotence.
func (s *Slots) Promote() Session {
	if s.staging == nil {
		return nil
	}
	retired := s.active
	s.active = s.staging
	s.staging = nil
	return retired
}

// DropStaging clears the staging slot and returns its former occupant.
func (s *Slots) DropStaging() Session {
	prev := s.staging
	s.staging = nil
	return prev
}

// Clear empties both slots and returns the former occupants (nil entries
// omitted).
func (s *Slots) Clear() []Session {
	out := make([]Session, 0, 2)
	if s.staging != nil {
		out = append(out, s.staging)
		s.staging = nil
	}
	if s.active != nil {
		out = append(out, s.active)
		s.active = nil
	}
	return out
}
