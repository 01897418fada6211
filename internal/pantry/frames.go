package pantry

import (
	"errors"
	"sync"
	"time"
)

// ErrNoFrame is returned by a FrameSource when no frame is currently
// available. The engine treats this as a sensor condition, not a fault.
var ErrNoFrame = errors.New("no frame available")

// Frame is a single captured camera image.
type Frame struct {
	Data        []byte
	ContentType string
	ReceivedAt  time.Time
}

// FrameSource supplies the current camera frame. Implementations return
// ErrNoFrame when the camera has not produced anything recent enough.
type FrameSource interface {
	Frame() (*Frame, error)
}

// LatestFrame is a FrameSource fed by pushes: a client posts camera
// frames and the engine reads whichever arrived last. Frames older than
// maxAge are considered gone, so a client that stops pushing looks like
// an unavailable camera rather than a frozen one.
type LatestFrame struct {
	mu     sync.Mutex
	frame  *Frame
	maxAge time.Duration
	now    func() time.Time
}

// NewLatestFrame creates a LatestFrame source. maxAge <= 0 disables the
// staleness check.
func NewLatestFrame(maxAge time.Duration) *LatestFrame {
	return &LatestFrame{maxAge: maxAge, now: time.Now}
}

// Push replaces the current frame.
func (l *LatestFrame) Push(data []byte, contentType string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frame = &Frame{
		Data:        data,
		ContentType: contentType,
		ReceivedAt:  l.now(),
	}
}

// Frame returns the most recently pushed frame, or ErrNoFrame if none
// has arrived or the last one is stale.
func (l *LatestFrame) Frame() (*Frame, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.frame == nil {
		return nil, ErrNoFrame
	}
	if l.maxAge > 0 && l.now().Sub(l.frame.ReceivedAt) > l.maxAge {
		return nil, ErrNoFrame
	}
	return l.frame, nil
}
