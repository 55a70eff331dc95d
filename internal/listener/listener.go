// Package listener implements destruction notification between compositor
// objects and the protocol resources clients control.
//
// A Signal is the resource side: an ordered list of Listeners notified when
// the resource goes away. A DestroyListener is the observer side: a one-shot
// watch that never owns the resource it observes.
package listener

import "slices"

// Listener is a single registration on a Signal.
type Listener struct {
	Notify func(data any)

	signal *Signal
}

// Linked reports whether the listener is currently registered on a signal.
func (l *Listener) Linked() bool {
	return l.signal != nil
}

// Remove unlinks the listener from its signal. Removing an unlinked listener
// is a no-op.
func (l *Listener) Remove() {
	if l.signal == nil {
		return
	}
	s := l.signal
	l.signal = nil
	if i := slices.Index(s.listeners, l); i >= 0 {
		s.listeners = slices.Delete(s.listeners, i, i+1)
	}
}

// Signal is an ordered set of listeners.
type Signal struct {
	listeners []*Listener
}

// Add links l at the end of the signal. A listener belongs to at most one
// signal, so l is first removed from wherever it was.
func (s *Signal) Add(l *Listener) {
	l.Remove()
	l.signal = s
	s.listeners = append(s.listeners, l)
}

// Len returns the number of linked listeners.
func (s *Signal) Len() int {
	return len(s.listeners)
}

// Emit notifies every listener linked at the time of the call. Listeners
// removed by an earlier callback in the same emission are skipped.
func (s *Signal) Emit(data any) {
	for _, l := range slices.Clone(s.listeners) {
		if l.signal != s {
			continue
		}
		if l.Notify != nil {
			l.Notify(data)
		}
	}
}

// Clear unlinks every listener without notifying them.
func (s *Signal) Clear() {
	for _, l := range s.listeners {
		l.signal = nil
	}
	s.listeners = nil
}

// Watchable is implemented by anything that can announce its destruction.
type Watchable interface {
	AddDestroyListener(l *Listener)
}

// DestroyListener observes the destruction of one Watchable at a time.
type DestroyListener struct {
	listener Listener
	fired    func(data any)
}

// NewDestroyListener returns an inert listener that calls fn once when the
// watched object is destroyed.
func NewDestroyListener(fn func(data any)) *DestroyListener {
	d := &DestroyListener{fired: fn}
	d.listener.Notify = d.fire
	return d
}

// Watch starts observing w, dropping any previous watch.
func (d *DestroyListener) Watch(w Watchable) {
	d.listener.Remove()
	if w != nil {
		w.AddDestroyListener(&d.listener)
	}
}

// Reset stops observing without firing.
func (d *DestroyListener) Reset() {
	d.listener.Remove()
}

// Watching reports whether a watch is active.
func (d *DestroyListener) Watching() bool {
	return d.listener.Linked()
}

func (d *DestroyListener) fire(data any) {
	d.listener.Remove()
	if d.fired != nil {
		d.fired(data)
	}
}
