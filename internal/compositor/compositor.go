// Package compositor holds the protocol object model shared by every input
// device: clients, their resources, surfaces and the compositor-wide serial
// and time sources.
//
// None of these types are safe for concurrent use. A compositor is driven
// from a single goroutine, the way a Wayland event loop dispatches.
package compositor

import (
	"slices"
	"time"

	"github.com/bnema/wayseat/internal/wire"
)

// SerialClock is what a device needs from the compositor to stamp events.
type SerialClock interface {
	// NextSerial returns a fresh serial, strictly greater than every serial
	// handed out before it in this session.
	NextSerial() uint32
	// CurrentTimeMsecs returns the event timestamp in milliseconds.
	CurrentTimeMsecs() uint32
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithClock replaces the monotonic clock used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Compositor) {
		c.now = now
	}
}

// Compositor owns the global serial counter, the event clock and the set of
// connected clients.
type Compositor struct {
	serial uint32
	now    func() time.Time
	start  time.Time

	clients      map[uint32]*Client
	nextClientID uint32
}

// New creates a compositor whose clock starts now.
func New(opts ...Option) *Compositor {
	c := &Compositor{
		now:     time.Now,
		clients: make(map[uint32]*Client),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.start = c.now()
	return c
}

// NextSerial implements SerialClock. Zero is reserved as the "nothing was
// sent" sentinel, so the counter skips it on wrap-around.
func (c *Compositor) NextSerial() uint32 {
	c.serial++
	if c.serial == 0 {
		c.serial = 1
	}
	return c.serial
}

// Serial returns the last serial handed out.
func (c *Compositor) Serial() uint32 {
	return c.serial
}

// CurrentTimeMsecs implements SerialClock.
func (c *Compositor) CurrentTimeMsecs() uint32 {
	return uint32(c.now().Sub(c.start).Milliseconds())
}

// CreateClient registers a new client whose events go to sink.
func (c *Compositor) CreateClient(name string, sink wire.Sink) *Client {
	c.nextClientID++
	client := newClient(c, c.nextClientID, name, sink)
	c.clients[client.id] = client
	return client
}

// Client returns a connected client by id.
func (c *Compositor) Client(id uint32) *Client {
	return c.clients[id]
}

// Clients returns the connected clients ordered by id.
func (c *Compositor) Clients() []*Client {
	out := make([]*Client, 0, len(c.clients))
	for _, client := range c.clients {
		out = append(out, client)
	}
	slices.SortFunc(out, func(a, b *Client) int { return cmpID(a.id, b.id) })
	return out
}

func (c *Compositor) removeClient(client *Client) {
	delete(c.clients, client.id)
}
