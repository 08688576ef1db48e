package document

// EventType identifies what changed.
type EventType string

const (
	// EventPage carries the new record of a single page.
	EventPage EventType = "page"
	// EventRun signals a change of the processing or stop flags.
	EventRun EventType = "run"
	// EventSettings signals a change of the translation settings.
	EventSettings EventType = "settings"
	// EventDocument signals a change that touched many pages at once.
	EventDocument EventType = "document"
)

// Event is published after every state change.
type Event struct {
	Type EventType `json:"type"`
	Page *PageView `json:"page,omitempty"`
}

const subscriberBuffer = 64

// Subscribe returns a channel of change events and a function that
// unsubscribes and closes it. Events are dropped for subscribers that fall
// behind; a fresh Snapshot always reflects the latest state.
func (d *Document) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.subs[id] = ch
	d.mu.Unlock()

	var done bool
	cancel := func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if done {
			return
		}
		done = true
		delete(d.subs, id)
		close(ch)
	}
	return ch, cancel
}

func (d *Document) publish(ev Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, ch := range d.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
