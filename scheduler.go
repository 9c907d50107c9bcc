package montage

// FrameScheduler is the host's animation-frame facility: RequestFrame runs fn
// once, at the host's next frame. A Movie never has more than one request
// outstanding.
type FrameScheduler interface {
	RequestFrame(fn func())
}

// ManualScheduler queues frame requests until Step runs them. It drives
// movies headlessly: in tests, offline rendering, or from a host loop that is
// not a Player.
type ManualScheduler struct {
	pending []func()
}

// RequestFrame queues fn for the next Step.
func (s *ManualScheduler) RequestFrame(fn func()) {
	s.pending = append(s.pending, fn)
}

// Step runs the callbacks queued before the call and returns how many ran.
// Callbacks requested while stepping wait for the next Step.
func (s *ManualScheduler) Step() int {
	fns := s.pending
	s.pending = nil
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// Pending returns the number of queued callbacks.
func (s *ManualScheduler) Pending() int {
	return len(s.pending)
}
