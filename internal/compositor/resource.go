package compositor

import (
	"fmt"

	"github.com/bnema/wayseat/internal/listener"
	"github.com/bnema/wayseat/internal/wire"
)

// RequestHandler implements the requests of one resource. Returning a
// *ProtocolError disconnects the client with that error.
type RequestHandler func(r *Resource, opcode uint16, args *wire.Decoder) error

// Resource is one client's instance of a protocol object, identified by
// (client, object id, version).
type Resource struct {
	client  *Client
	id      uint32
	version uint32
	iface   *wire.Interface
	handler RequestHandler
	data    any

	destroySignal listener.Signal
	destroyed     bool
}

func (r *Resource) ID() uint32 {
	return r.id
}

func (r *Resource) Version() uint32 {
	return r.version
}

func (r *Resource) Client() *Client {
	return r.client
}

func (r *Resource) Interface() *wire.Interface {
	return r.iface
}

// Data returns the compositor object this resource stands for.
func (r *Resource) Data() any {
	return r.data
}

// SetData attaches the compositor object this resource stands for.
func (r *Resource) SetData(data any) {
	r.data = data
}

// SetHandler replaces the request implementation.
func (r *Resource) SetHandler(h RequestHandler) {
	r.handler = h
}

func (r *Resource) Destroyed() bool {
	return r.destroyed
}

func (r *Resource) String() string {
	return fmt.Sprintf("%s@%d", r.iface.Name, r.id)
}

// AddDestroyListener implements listener.Watchable. A destroyed resource
// never fires again, so watching one is inert.
func (r *Resource) AddDestroyListener(l *listener.Listener) {
	if r.destroyed {
		return
	}
	r.destroySignal.Add(l)
}

// PostEvent queues an event on the client's connection. Events on destroyed
// resources, and events newer than the bound version, are dropped.
func (r *Resource) PostEvent(opcode uint16, args *wire.Builder) {
	if r.destroyed || r.client.destroyed {
		return
	}
	if desc, ok := r.iface.Event(opcode); ok && desc.Since > r.version {
		r.client.log.Debug("dropping event newer than bound version", "object", r.String(), "event", desc.Name)
		return
	}
	r.client.send(wire.Message{
		Sender:    r.id,
		Interface: r.iface.Name,
		Opcode:    opcode,
		Args:      args.Bytes(),
	})
}

// PostError posts a protocol error against this resource.
func (r *Resource) PostError(code uint32, format string, args ...any) {
	r.client.PostError(r.id, code, fmt.Sprintf(format, args...))
}

// Destroy fires the destroy listeners once and forgets the object. Client
// allocated ids are released with wl_display.delete_id while the client is
// still connected.
func (r *Resource) Destroy() {
	if r.destroyed {
		return
	}
	r.destroyed = true

	r.destroySignal.Emit(r)
	r.destroySignal.Clear()

	delete(r.client.resources, r.id)
	if !r.client.destroyed && r.id < wire.ServerIDStart && r.id != wire.DisplayObjectID {
		r.client.sendDeleteID(r.id)
	}
}
