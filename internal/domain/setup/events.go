package setup

import (
	"sync"
	"time"
)

// LogEntry is a log line relayed to listeners.
type LogEntry struct {
	Time    time.Time
	Level   string
	Message string
	Fields  map[string]interface{}
}

// Listener observes the orchestrator. Calls are fire-and-forget and are made
// from the goroutine driving the run; implementations must not block.
type Listener interface {
	OnStateChanged(state State)
	OnCompleted()
	OnError(err StepError)
	OnLog(entry LogEntry)
}

// ListenerFuncs adapts optional functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	StateChanged func(State)
	Completed    func()
	Error        func(StepError)
	Log          func(LogEntry)
}

// OnStateChanged implements Listener.
func (f ListenerFuncs) OnStateChanged(state State) {
	if f.StateChanged != nil {
		f.StateChanged(state)
	}
}

// OnCompleted implements Listener.
func (f ListenerFuncs) OnCompleted() {
	if f.Completed != nil {
		f.Completed()
	}
}

// OnError implements Listener.
func (f ListenerFuncs) OnError(err StepError) {
	if f.Error != nil {
		f.Error(err)
	}
}

// OnLog implements Listener.
func (f ListenerFuncs) OnLog(entry LogEntry) {
	if f.Log != nil {
		f.Log(entry)
	}
}

// broadcaster fans events out to subscribed listeners in subscription order.
type broadcaster struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]Listener
	order     []int
}

func newBroadcaster() *broadcaster {
	return &broadcaster{listeners: make(map[int]Listener)}
}

func (b *broadcaster) subscribe(l Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.listeners[id] = l
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.listeners, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (b *broadcaster) snapshot() []Listener {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Listener, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.listeners[id])
	}
	return out
}

func (b *broadcaster) stateChanged(st State) {
	for _, l := range b.snapshot() {
		l.OnStateChanged(st.Clone())
	}
}

func (b *broadcaster) completed() {
	for _, l := range b.snapshot() {
		l.OnCompleted()
	}
}

func (b *broadcaster) failed(err StepError) {
	for _, l := range b.snapshot() {
		l.OnError(err)
	}
}

func (b *broadcaster) log(entry LogEntry) {
	for _, l := range b.snapshot() {
		l.OnLog(entry)
	}
}
