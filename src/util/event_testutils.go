package util

import (
	"reflect"
	"testing"
	"time"
)

// TestEventEmission asserts that performing the trigger causes the specified
// event to be emitted.
func TestEventEmission(t *testing.T, ev Eventer, event interface{}, trigger func()) {
	t.Helper()
	l := ev.Events().Listen()
	defer ev.Events().Unlisten(l)
	trigger()
	for {
		select {
		case msg := <-l:
			t.Logf("%T %#v", msg, msg)
			if reflect.DeepEqual(msg, event) {
				return
			}
		case <-time.After(time.Second):
			t.Fatalf("Event %#v was not emitted", event)
		}
	}
}

// TestNoEventEmission asserts that performing the trigger does not cause an
// event of the same type as the specified event to be emitted.
func TestNoEventEmission(t *testing.T, ev Eventer, event interface{}, trigger func()) {
	t.Helper()
	l := ev.Events().Listen()
	defer ev.Events().Unlisten(l)
	trigger()
	for {
		select {
		case msg := <-l:
			if reflect.TypeOf(msg) == reflect.TypeOf(event) {
				t.Fatalf("Event %#v was emitted", msg)
			}
		case <-time.After(time.Millisecond * 100):
			return
		}
	}
}
