package chatclient

import (
	"fmt"
	"sync"
	"time"

	"blogchat/internal/event"
)

// DefaultTypingIdle is how long after the last keystroke a typing indicator stops by itself.
const DefaultTypingIdle = time.Second

// Emitter is the part of Client a TypingIndicator needs.
type Emitter interface {
	Emit(name string, payload any) error
}

// TypingIndicator turns keystrokes into typing/stopTyping events for one conversation.
// The first keystroke emits typing; later ones only push the idle deadline back. Stop, or
// the idle timer, emits stopTyping once.
type TypingIndicator struct {
	mu      sync.Mutex
	emitter Emitter
	target  event.TypingPayload
	idle    time.Duration
	typing  bool
	timer   *time.Timer
	gen     uint64
	onError func(error)
}

func NewTypingIndicator(emitter Emitter, room, recipient string, idle time.Duration) *TypingIndicator {
	if idle <= 0 {
		idle = DefaultTypingIdle
	}
	return &TypingIndicator{
		emitter: emitter,
		target:  event.TypingPayload{Room: room, Recipient: recipient},
		idle:    idle,
	}
}

// SetErrorHandler receives emit errors from the idle timer, which has no caller to return
// them to. Without one they are dropped.
func (t *TypingIndicator) SetErrorHandler(fn func(error)) {
	t.mu.Lock()
	t.onError = fn
	t.mu.Unlock()
}

// Keystroke emits typing when not already typing and restarts the idle timer. A failed
// typing emit leaves the indicator idle, so the next keystroke tries again.
func (t *TypingIndicator) Keystroke() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.gen++
	gen := t.gen
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}

	if !t.typing {
		if err := t.emitter.Emit(event.EventTyping, t.target); err != nil {
			return err
		}
		t.typing = true
	}
	t.timer = time.AfterFunc(t.idle, func() { t.expire(gen) })
	return nil
}

// Stop ends typing now and cancels the idle timer. It does nothing when not typing.
func (t *TypingIndicator) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopLocked()
}

func (t *TypingIndicator) IsTyping() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.typing
}

// expire runs on the timer goroutine; a timer superseded by a later keystroke or Stop is ignored.
func (t *TypingIndicator) expire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	err := t.stopLocked()
	onError := t.onError
	t.mu.Unlock()

	if err != nil && onError != nil {
		onError(fmt.Errorf("idle stopTyping: %w", err))
	}
}

func (t *TypingIndicator) stopLocked() error {
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if !t.typing {
		return nil
	}
	t.typing = false
	return t.emitter.Emit(event.EventStopTyping, t.target)
}
