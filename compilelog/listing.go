package compilelog

import "sync"

// ListingName is the name of the per-asset compile results listing.
const ListingName = "DialogCompileResults"

// Listing is the results surface of one dialog asset. Unlike Log it is safe
// for concurrent use: it is written by a compile pass and read by viewers.
type Listing struct {
	Name string

	mu       sync.RWMutex
	messages []Message
}

// NewListing returns an empty listing named ListingName.
func NewListing() *Listing {
	return &Listing{Name: ListingName}
}

// Clear drops all messages.
func (l *Listing) Clear() {
	l.mu.Lock()
	l.messages = nil
	l.mu.Unlock()
}

// AddMessages appends msgs.
func (l *Listing) AddMessages(msgs ...Message) {
	l.mu.Lock()
	l.messages = append(l.messages, msgs...)
	l.mu.Unlock()
}

// Messages returns a copy of the listing.
func (l *Listing) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}
