package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Severity classifies a toast for presentation.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// DefaultToastDuration is used when a caller does not specify one
var DefaultToastDuration = time.Second * 4

// Toast is a transient, user-visible message queued on the Bus.
type Toast struct {
	ID        string        `json:"id"`
	Message   string        `json:"message"`
	Severity  Severity      `json:"severity"`
	Title     string        `json:"title,omitempty"`
	Duration  time.Duration `json:"duration"`
	AutoClose bool          `json:"auto_close"`
	CreatedAt time.Time     `json:"created_at"`
}

// ToastOption customizes a single Post call.
type ToastOption func(*Toast)

// WithTitle overrides the default per-severity title.
func WithTitle(title string) ToastOption {
	return func(t *Toast) {
		t.Title = title
	}
}

// WithDuration sets the display duration. Zero keeps the toast on screen
// until it is dismissed manually.
func WithDuration(d time.Duration) ToastOption {
	return func(t *Toast) {
		if d >= 0 {
			t.Duration = d
		}
	}
}

// Sticky disables auto-close for this toast.
func Sticky() ToastOption {
	return func(t *Toast) {
		t.AutoClose = false
	}
}

// QueueListener receives the full queue, oldest first, on every mutation.
// Renderers treat it as a replacing snapshot rather than a delta stream.
type QueueListener func(queue []Toast)

// Bus multiplexes transient UI messages from many uncoordinated callers
// into a single ordered, auto-expiring queue. It is independent of
// session state. Only the Bus mutates the queue, always through Post and
// Dismiss.
type Bus struct {
	logger Logger
	clock  func() time.Time

	mu        sync.Mutex
	queue     []Toast
	timers    map[string]*time.Timer
	listeners []*busListener

	deliverMu sync.Mutex
}

type busListener struct {
	fn     QueueListener
	mu     sync.Mutex
	closed bool
}

func (l *busListener) deliver(queue []Toast) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.fn(queue)
}

func (l *busListener) close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
}

// BusOption customizes Bus construction.
type BusOption func(*Bus)

// WithBusLogger overrides the logger
func WithBusLogger(logger Logger) BusOption {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithBusClock injects a custom clock (useful for tests).
func WithBusClock(clock func() time.Time) BusOption {
	return func(b *Bus) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// NewBus returns an empty notification bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		logger: defLogger{},
		clock:  time.Now,
		timers: map[string]*time.Timer{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	return b
}

// Post appends a toast to the tail of the queue and returns its id
// without blocking. When auto-close applies, the Bus schedules its own
// dismissal after the duration.
func (b *Bus) Post(message string, severity Severity, opts ...ToastOption) string {
	toast := Toast{
		ID:        uuid.New().String(),
		Message:   message,
		Severity:  severity,
		Title:     defaultTitle(severity),
		Duration:  DefaultToastDuration,
		AutoClose: true,
		CreatedAt: b.clock(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&toast)
		}
	}

	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()

	b.mu.Lock()
	b.queue = append(b.queue, toast)
	if toast.AutoClose && toast.Duration > 0 {
		id := toast.ID
		b.timers[id] = time.AfterFunc(toast.Duration, func() {
			b.Dismiss(id)
		})
	}
	snapshot := b.snapshotLocked()
	b.mu.Unlock()

	b.deliver(snapshot)
	return toast.ID
}

// Success posts a success toast.
func (b *Bus) Success(message string, opts ...ToastOption) string {
	return b.Post(message, SeveritySuccess, opts...)
}

// Error posts an error toast.
func (b *Bus) Error(message string, opts ...ToastOption) string {
	return b.Post(message, SeverityError, opts...)
}

// Warning posts a warning toast.
func (b *Bus) Warning(message string, opts ...ToastOption) string {
	return b.Post(message, SeverityWarning, opts...)
}

// Info posts an info toast.
func (b *Bus) Info(message string, opts ...ToastOption) string {
	return b.Post(message, SeverityInfo, opts...)
}

// Dismiss removes the toast with the given id. Removing an absent id,
// including one whose auto-expiry already fired, is a no-op. A pending
// auto-dismiss timer for the id is cancelled so a reused id is never
// double-removed.
func (b *Bus) Dismiss(id string) {
	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()

	b.mu.Lock()

	if timer, ok := b.timers[id]; ok {
		timer.Stop()
		delete(b.timers, id)
	}

	index := -1
	for i, toast := range b.queue {
		if toast.ID == id {
			index = i
			break
		}
	}

	if index < 0 {
		b.mu.Unlock()
		return
	}

	b.queue = append(b.queue[:index], b.queue[index+1:]...)
	snapshot := b.snapshotLocked()
	b.mu.Unlock()

	b.deliver(snapshot)
}

// Subscribe registers a listener that receives the full queue on every
// mutation, starting with the current state. The initial snapshot goes
// out under the delivery lock so a new subscriber never observes a
// newer round before its starting state. The returned handle removes
// the listener.
func (b *Bus) Subscribe(fn QueueListener) func() {
	if fn == nil {
		return func() {}
	}

	entry := &busListener{fn: fn}

	b.deliverMu.Lock()
	b.mu.Lock()
	b.listeners = append(b.listeners, entry)
	snapshot := b.snapshotLocked()
	b.mu.Unlock()

	entry.deliver(snapshot)
	b.deliverMu.Unlock()

	return func() {
		entry.close()
		b.mu.Lock()
		for i, l := range b.listeners {
			if l == entry {
				b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
	}
}

// Queue returns a copy of the current queue, oldest first.
func (b *Bus) Queue() []Toast {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (b *Bus) snapshotLocked() []Toast {
	snapshot := make([]Toast, len(b.queue))
	copy(snapshot, b.queue)
	return snapshot
}

// deliver fans one snapshot out to the registry. Callers hold
// deliverMu, so two mutations never interleave their rounds.
func (b *Bus) deliver(snapshot []Toast) {
	b.mu.Lock()
	listeners := make([]*busListener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.Unlock()

	for _, l := range listeners {
		l.deliver(snapshot)
	}
}

func defaultTitle(severity Severity) string {
	switch severity {
	case SeveritySuccess:
		return "Success"
	case SeverityError:
		return "Error"
	case SeverityWarning:
		return "Warning"
	case SeverityInfo:
		return "Info"
	default:
		return "Notice"
	}
}
