package notify

import (
	"context"
	"sync"
)

const defaultBufferSize = 16

// Dispatcher fans events out to in-process subscribers of the event's workspace. Slow
// subscribers miss events rather than block publishers.
type Dispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*subscriber
	nextID      int64
	bufferSize  int
}

type subscriber struct {
	id     int64
	stream chan Event
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		subscribers: make(map[string]map[int64]*subscriber),
		bufferSize:  defaultBufferSize,
	}
}

// Subscribe streams the events of workspace until ctx is done or the returned cleanup runs.
func (d *Dispatcher) Subscribe(ctx context.Context, workspace string) (<-chan Event, func()) {
	if workspace == "" {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}
	sub := &subscriber{
		id:     d.nextSequence(),
		stream: make(chan Event, d.bufferSize),
	}
	d.register(workspace, sub)
	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			d.unregister(workspace, sub.id)
		})
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return sub.stream, cleanup
}

func (d *Dispatcher) Publish(_ context.Context, event Event) error {
	if event.Workspace == "" || event.Type == "" {
		return nil
	}
	d.mu.RLock()
	subscribers := d.subscribers[event.Workspace]
	if len(subscribers) == 0 {
		d.mu.RUnlock()
		return nil
	}
	copies := make([]*subscriber, 0, len(subscribers))
	for _, sub := range subscribers {
		copies = append(copies, sub)
	}
	d.mu.RUnlock()
	for _, sub := range copies {
		select {
		case sub.stream <- event:
		default:
		}
	}
	return nil
}

// Subscribers reports how many streams are open for workspace.
func (d *Dispatcher) Subscribers(workspace string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers[workspace])
}

func (d *Dispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *Dispatcher) register(workspace string, sub *subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subscribers[workspace]; !ok {
		d.subscribers[workspace] = make(map[int64]*subscriber)
	}
	d.subscribers[workspace][sub.id] = sub
}

func (d *Dispatcher) unregister(workspace string, subscriberID int64) {
	d.mu.Lock()
	subscribers := d.subscribers[workspace]
	if subscribers != nil {
		delete(subscribers, subscriberID)
		if len(subscribers) == 0 {
			delete(d.subscribers, workspace)
		}
	}
	d.mu.Unlock()
}
