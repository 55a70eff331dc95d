package compositor

import (
	"errors"
	"fmt"
	"slices"

	"github.com/bnema/wayseat/internal/listener"
	"github.com/bnema/wayseat/internal/logger"
	"github.com/bnema/wayseat/internal/wire"
	"github.com/charmbracelet/log"
)

// Client is one connection to the compositor and the protocol objects it
// has created.
type Client struct {
	id         uint32
	name       string
	compositor *Compositor
	sink       wire.Sink
	log        *log.Logger

	resources    map[uint32]*Resource
	nextServerID uint32

	destroySignal listener.Signal
	destroyed     bool
}

func newClient(c *Compositor, id uint32, name string, sink wire.Sink) *Client {
	if sink == nil {
		sink = wire.Discard
	}
	client := &Client{
		id:           id,
		name:         name,
		compositor:   c,
		sink:         sink,
		log:          logger.With("client", name, "client_id", id),
		resources:    make(map[uint32]*Resource),
		nextServerID: wire.ServerIDStart,
	}

	// wl_display exists on every connection; it carries errors and delete_id.
	display := &Resource{
		client:  client,
		id:      wire.DisplayObjectID,
		version: 1,
		iface:   wire.MustLookup(wire.DisplayInterface),
		handler: client.handleDisplayRequest,
	}
	client.resources[display.id] = display
	return client
}

func (c *Client) ID() uint32 {
	return c.id
}

func (c *Client) Name() string {
	return c.name
}

func (c *Client) Compositor() *Compositor {
	return c.compositor
}

// Destroyed reports whether the client has disconnected.
func (c *Client) Destroyed() bool {
	return c.destroyed
}

// AddDestroyListener implements listener.Watchable.
func (c *Client) AddDestroyListener(l *listener.Listener) {
	if c.destroyed {
		return
	}
	c.destroySignal.Add(l)
}

// SetSink replaces the connection the client's events go to. Nil discards
// them.
func (c *Client) SetSink(sink wire.Sink) {
	if sink == nil {
		sink = wire.Discard
	}
	c.sink = sink
}

// Resource returns a live resource by object id, or nil.
func (c *Client) Resource(id uint32) *Resource {
	return c.resources[id]
}

// Resources returns the client's live resources ordered by id.
func (c *Client) Resources() []*Resource {
	out := make([]*Resource, 0, len(c.resources))
	for _, r := range c.resources {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b *Resource) int { return cmpID(a.id, b.id) })
	return out
}

// CheckNewID validates a new_id argument sent by a client. Zero and the
// server-side range are never valid there.
func CheckNewID(id uint32) error {
	if id == 0 || id >= wire.ServerIDStart {
		return NewProtocolError(wire.DisplayObjectID, wire.DisplayErrorInvalidObject,
			"invalid new id %d", id)
	}
	return nil
}

// NewResource creates a protocol object for the client. A zero id allocates
// from the server-side id range; ids taken from requests must pass
// CheckNewID first. The version is clamped to what the
// interface supports.
func (c *Client) NewResource(iface *wire.Interface, id, version uint32, handler RequestHandler) (*Resource, error) {
	if c.destroyed {
		return nil, ErrClientDestroyed
	}
	if id == 0 {
		id = c.nextServerID
		c.nextServerID++
	}
	if _, exists := c.resources[id]; exists {
		return nil, NewProtocolError(wire.DisplayObjectID, wire.DisplayErrorInvalidObject,
			"invalid new id %d: already in use", id)
	}
	if version == 0 || version > iface.Version {
		version = iface.Version
	}

	r := &Resource{
		client:  c,
		id:      id,
		version: version,
		iface:   iface,
		handler: handler,
	}
	c.resources[id] = r
	return r, nil
}

// Dispatch delivers one inbound request to the resource it addresses.
// Protocol violations are posted to the client, which disconnects it, and
// returned so the caller can log them.
func (c *Client) Dispatch(m wire.Message) error {
	if c.destroyed {
		return ErrClientDestroyed
	}

	r := c.resources[m.Sender]
	if r == nil {
		return c.postProtocolError(NewProtocolError(wire.DisplayObjectID, wire.DisplayErrorInvalidObject,
			"invalid object %d", m.Sender))
	}

	desc, ok := r.iface.Request(m.Opcode)
	if !ok {
		return c.postProtocolError(NewProtocolError(wire.DisplayObjectID, wire.DisplayErrorInvalidMethod,
			"invalid method %d, object %s@%d", m.Opcode, r.iface.Name, r.id))
	}
	if desc.Since > r.version {
		return c.postProtocolError(NewProtocolError(wire.DisplayObjectID, wire.DisplayErrorInvalidMethod,
			"invalid method %d (since %d < %d), object %s@%d", m.Opcode, r.version, desc.Since, r.iface.Name, r.id))
	}
	if _, err := wire.DecodeArgs(desc.Signature, m.Args); err != nil {
		return c.postProtocolError(NewProtocolError(wire.DisplayObjectID, wire.DisplayErrorInvalidMethod,
			"invalid arguments for %s@%d.%s", r.iface.Name, r.id, desc.Name))
	}

	c.log.Debug("request", "object", fmt.Sprintf("%s@%d", r.iface.Name, r.id), "request", desc.Name)

	if r.handler == nil {
		return nil
	}
	err := r.handler(r, m.Opcode, wire.NewDecoder(m.Args))
	var perr *ProtocolError
	if errors.As(err, &perr) {
		return c.postProtocolError(perr)
	}
	if err != nil {
		return fmt.Errorf("%s@%d.%s: %w", r.iface.Name, r.id, desc.Name, err)
	}
	return nil
}

func (c *Client) postProtocolError(err *ProtocolError) error {
	c.PostError(err.Object, err.Code, err.Message)
	return err
}

// PostError sends wl_display.error for object and disconnects the client.
func (c *Client) PostError(object, code uint32, message string) {
	if c.destroyed {
		return
	}
	c.log.Warn("protocol error, disconnecting client", "object", object, "code", code, "message", message)

	c.send(wire.Message{
		Sender:    wire.DisplayObjectID,
		Interface: wire.DisplayInterface,
		Opcode:    wire.DisplayEventError,
		Args:      wire.NewBuilder().Object(object).Uint(code).String(message).Bytes(),
	})
	c.Destroy()
}

// Destroy disconnects the client: every resource is destroyed, newest id
// first, then the client's own destroy listeners fire.
func (c *Client) Destroy() {
	if c.destroyed {
		return
	}
	c.destroyed = true

	resources := c.Resources()
	slices.Reverse(resources)
	for _, r := range resources {
		r.Destroy()
	}

	c.destroySignal.Emit(c)
	c.destroySignal.Clear()
	c.compositor.removeClient(c)
	c.log.Debug("client destroyed")
}

func (c *Client) send(m wire.Message) {
	if c.destroyed {
		return
	}
	if err := c.sink.WriteMessage(m); err != nil {
		c.log.Warn("failed to send event, disconnecting client", "object", m.Sender, "err", err)
		c.Destroy()
	}
}

func (c *Client) sendDeleteID(id uint32) {
	c.send(wire.Message{
		Sender:    wire.DisplayObjectID,
		Interface: wire.DisplayInterface,
		Opcode:    wire.DisplayEventDeleteID,
		Args:      wire.NewBuilder().Uint(id).Bytes(),
	})
}

func (c *Client) handleDisplayRequest(r *Resource, opcode uint16, args *wire.Decoder) error {
	switch opcode {
	case wire.DisplayRequestSync:
		id := args.NewID()
		if err := CheckNewID(id); err != nil {
			return err
		}
		cb, err := c.NewResource(wire.MustLookup(wire.CallbackInterface), id, 1, nil)
		if err != nil {
			return err
		}
		cb.PostEvent(wire.CallbackEventDone, wire.NewBuilder().Uint(c.compositor.NextSerial()))
		cb.Destroy()
	case wire.DisplayRequestGetRegistry:
		// Globals are bound by the embedding server, not advertised here.
		c.log.Debug("ignoring get_registry")
	}
	return nil
}

func cmpID(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
