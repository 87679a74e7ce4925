// Package model holds the declarative chart description the view renders:
// a Chart owns titles, a legend and a Diagram; the Diagram owns coordinate
// systems, which own axes and chart types, which own data series.
//
// Every object is Observable. Structural or property changes fire a modify
// notification that each parent forwards to its own subscribers, so a
// single subscription on the Chart sees every change in the tree. The
// model is not safe for concurrent mutation; it is driven from one UI
// thread.
package model

import (
	"slices"
	"sync"
)

// Listener receives modify notifications. source is the object whose
// state changed, not the object the listener subscribed to.
type Listener interface {
	Modified(source any)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(source any)

func (f ListenerFunc) Modified(source any) { f(source) }

// Handle identifies a subscription. The zero Handle is never issued.
type Handle uint64

// Observable is implemented by every model object.
type Observable interface {
	Subscribe(l Listener) Handle
	Unsubscribe(h Handle)
}

// Broadcaster fans modify notifications out to subscribers in
// subscription order. The zero value is ready to use.
type Broadcaster struct {
	lock      sync.Mutex
	next      Handle
	listeners map[Handle]Listener
}

// Subscribe registers l and returns the handle that removes it.
func (b *Broadcaster) Subscribe(l Listener) Handle {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.listeners == nil {
		b.listeners = make(map[Handle]Listener)
	}
	b.next++
	b.listeners[b.next] = l
	return b.next
}

// Unsubscribe removes the listener registered under h. Unknown handles are
// ignored.
func (b *Broadcaster) Unsubscribe(h Handle) {
	b.lock.Lock()
	defer b.lock.Unlock()
	delete(b.listeners, h)
}

// Len returns the number of registered listeners.
func (b *Broadcaster) Len() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.listeners)
}

// Fire delivers a notification about source to every listener. Listeners
// run without the broadcaster's lock held and may subscribe or
// unsubscribe.
func (b *Broadcaster) Fire(source any) {
	b.lock.Lock()
	handles := make([]Handle, 0, len(b.listeners))
	for h := range b.listeners {
		handles = append(handles, h)
	}
	slices.Sort(handles)
	targets := make([]Listener, len(handles))
	for i, h := range handles {
		targets[i] = b.listeners[h]
	}
	b.lock.Unlock()
	for _, l := range targets {
		l.Modified(source)
	}
}

// forward subscribes b to o so that notifications from o are re-fired by b.
func forward(o Observable, b *Broadcaster) Handle {
	return o.Subscribe(ListenerFunc(b.Fire))
}
