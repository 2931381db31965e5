package util

import (
	"reflect"
	"sync"
	"time"
)

// An Eventer is a type that emits notifications through an event Emitter.
type Eventer interface {
	Events() *Emitter
}

// Emitter is a broadcast channel for typed event values.
//
// The zero value is ready for use.
type Emitter struct {
	// The release attribute determines how much time an event should be
	// buffered to prevent the emission of duplicate events. Only comparable
	// event values are deduplicated, events carrying slices or maps are
	// always broadcast immediately.
	// A zero value disables buffering.
	Release time.Duration

	listeners       map[<-chan interface{}]chan interface{}
	listenerClosers map[<-chan interface{}]chan struct{}
	lock            sync.RWMutex

	release map[interface{}]struct{}
}

func (emitter *Emitter) init() {
	emitter.lock.RLock()
	shouldInit := emitter.listeners == nil
	emitter.lock.RUnlock()
	if shouldInit {
		emitter.lock.Lock()
		if emitter.listeners == nil {
			emitter.listeners = map[<-chan interface{}]chan interface{}{}
			emitter.listenerClosers = map[<-chan interface{}]chan struct{}{}
			emitter.release = map[interface{}]struct{}{}
		}
		emitter.lock.Unlock()
	}
}

// snapshot captures the listeners registered at this instant. Delivery
// happens asynchronously, the snapshot ensures that listeners attached
// after Emit returns do not receive the event.
func (emitter *Emitter) snapshot() map[chan interface{}]chan struct{} {
	emitter.lock.RLock()
	defer emitter.lock.RUnlock()
	listeners := make(map[chan interface{}]chan struct{}, len(emitter.listeners))
	for _, listener := range emitter.listeners {
		listeners[listener] = emitter.listenerClosers[listener]
	}
	return listeners
}

func broadcast(event interface{}, listeners map[chan interface{}]chan struct{}) {
	for listener, closer := range listeners {
		go func(listener chan interface{}, closer chan struct{}) {
			select {
			case listener <- event:
			case <-closer:
			}
		}(listener, closer)
	}
}

// Emit broadcasts the event to all listeners registered at the time of the
// call.
func (emitter *Emitter) Emit(event interface{}) {
	emitter.init()

	listeners := emitter.snapshot()
	if emitter.Release == 0 || !reflect.TypeOf(event).Comparable() {
		go broadcast(event, listeners)
		return
	}

	// Check whether an identical event is already scheduled.
	emitter.lock.Lock()
	if _, ok := emitter.release[event]; ok {
		emitter.lock.Unlock()
		return
	}
	emitter.release[event] = struct{}{}
	emitter.lock.Unlock()

	go func() {
		time.Sleep(emitter.Release)

		emitter.lock.Lock()
		delete(emitter.release, event)
		emitter.lock.Unlock()

		broadcast(event, listeners)
	}()
}

// Listen registers a new listener channel on which all subsequently emitted
// events are received. The listener should be released with Unlisten.
func (emitter *Emitter) Listen() <-chan interface{} {
	emitter.init()

	emitter.lock.Lock()
	defer emitter.lock.Unlock()

	listener := make(chan interface{}, 16)
	emitter.listeners[listener] = listener
	emitter.listenerClosers[listener] = make(chan struct{})
	return listener
}

// Unlisten detaches a channel previously obtained from Listen.
func (emitter *Emitter) Unlisten(listener <-chan interface{}) {
	emitter.init()

	emitter.lock.Lock()
	defer emitter.lock.Unlock()

	closer, ok := emitter.listenerClosers[listener]
	if !ok {
		return
	}
	close(closer)
	delete(emitter.listenerClosers, listener)
	delete(emitter.listeners, listener)
}
