package seat

import (
	"slices"

	"github.com/bnema/wayseat/internal/compositor"
	"github.com/bnema/wayseat/internal/listener"
)

// bindingSet tracks every resource clients bound for one device, grouped by
// client in bind order. Entries disappear when their resource is destroyed.
type bindingSet struct {
	byClient map[*compositor.Client][]*compositor.Resource
}

func (b *bindingSet) add(r *compositor.Resource) {
	if b.byClient == nil {
		b.byClient = make(map[*compositor.Client][]*compositor.Resource)
	}
	client := r.Client()
	b.byClient[client] = append(b.byClient[client], r)
	r.AddDestroyListener(&listener.Listener{Notify: func(any) { b.remove(r) }})
}

func (b *bindingSet) remove(r *compositor.Resource) {
	client := r.Client()
	list := b.byClient[client]
	if i := slices.Index(list, r); i >= 0 {
		list = slices.Delete(list, i, i+1)
	}
	if len(list) == 0 {
		delete(b.byClient, client)
		return
	}
	b.byClient[client] = list
}

// forClient returns a snapshot, so a send loop survives bindings being
// added or destroyed underneath it.
func (b *bindingSet) forClient(client *compositor.Client) []*compositor.Resource {
	return slices.Clone(b.byClient[client])
}

// latest returns the client's most recent binding.
func (b *bindingSet) latest(client *compositor.Client) *compositor.Resource {
	list := b.byClient[client]
	if len(list) == 0 {
		return nil
	}
	return list[len(list)-1]
}

func (b *bindingSet) count(client *compositor.Client) int {
	return len(b.byClient[client])
}
