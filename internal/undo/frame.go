package undo

import "fmt"

// Frame is an inclusive range of change-log sequence numbers covering one
// barrier interval. Begin > End denotes an empty range.
type Frame struct {
	Begin int64 `json:"begin"`
	End   int64 `json:"end"`
}

// Empty reports whether the frame covers no sequence numbers.
func (f Frame) Empty() bool {
	return f.Begin > f.End
}

// String formats the frame as (begin,end).
func (f Frame) String() string {
	return fmt.Sprintf("(%d,%d)", f.Begin, f.End)
}

// stack is a LIFO of frames, pushed and popped at the tail.
type stack struct {
	frames []Frame
}

func (s *stack) push(f Frame) {
	s.frames = append(s.frames, f)
}

// peek returns the top frame without removing it.
func (s *stack) peek() (Frame, bool) {
	if len(s.frames) == 0 {
		return Frame{}, false
	}
	return s.frames[len(s.frames)-1], true
}

func (s *stack) pop() (Frame, bool) {
	f, ok := s.peek()
	if ok {
		s.frames = s.frames[:len(s.frames)-1]
	}
	return f, ok
}

func (s *stack) clear() {
	s.frames = nil
}

func (s *stack) len() int {
	return len(s.frames)
}

// snapshot returns a copy that callers may keep and modify.
func (s *stack) snapshot() []Frame {
	out := make([]Frame, len(s.frames))
	copy(out, s.frames)
	return out
}
