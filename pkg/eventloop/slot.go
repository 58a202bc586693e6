package eventloop

// Slot holds the single active Handle for one purpose (tick, idle, flash).
// Replacing the handle stops the previous one first.
type Slot struct {
	h Handle
}

// Replace stops the current handle, if any, and stores h.
func (s *Slot) Replace(h Handle) {
	if s.h != nil {
		s.h.Stop()
	}
	s.h = h
}

// Stop cancels the current handle and leaves the slot empty.
func (s *Slot) Stop() {
	s.Replace(nil)
}

// Armed reports whether the slot holds a handle that has not been stopped
// through the slot. A one-shot handle that already fired still counts.
func (s *Slot) Armed() bool {
	return s.h != nil
}
