package player

import (
	"path"
	"strings"
	"sync"
	"time"

	"vidbox/src/util"
)

// A PlayItem is a single playable unit in the playlist.
type PlayItem struct {
	URL string `json:"uri"`
	// Title is display metadata derived from the URL.
	Title string `json:"title"`
}

// NewPlayItem creates a PlayItem with its title derived from the filename.
func NewPlayItem(url string) PlayItem {
	base := path.Base(localPath(url))
	title := strings.TrimSuffix(base, path.Ext(base))
	if title == "" || title == "." || title == "/" {
		title = url
	}
	return PlayItem{URL: url, Title: title}
}

// Playlist is an ordered, mutable sequence of play items with current-index
// tracking. It owns item storage exclusively, the engine references items by
// index only.
//
// All methods are safe for concurrent use.
type Playlist struct {
	events util.Emitter

	lock    sync.RWMutex
	items   []PlayItem
	current int
}

func NewPlaylist() *Playlist {
	return &Playlist{
		// Bulk appends mutate the list item by item. The release window
		// coalesces the resulting burst of change notifications.
		events:  util.Emitter{Release: time.Millisecond * 100},
		current: -1,
	}
}

// Events exposes PlaylistEvent and PlaylistAppendedEvent notifications.
func (pl *Playlist) Events() *util.Emitter {
	return &pl.events
}

// Get returns the item at the specified index.
func (pl *Playlist) Get(index int) (PlayItem, bool) {
	pl.lock.RLock()
	defer pl.lock.RUnlock()
	if index < 0 || index >= len(pl.items) {
		return PlayItem{}, false
	}
	return pl.items[index], true
}

// Items returns a copy of all items in order.
func (pl *Playlist) Items() []PlayItem {
	pl.lock.RLock()
	defer pl.lock.RUnlock()
	items := make([]PlayItem, len(pl.items))
	copy(items, pl.items)
	return items
}

func (pl *Playlist) Count() int {
	pl.lock.RLock()
	defer pl.lock.RUnlock()
	return len(pl.items)
}

// CurrentIndex returns the index of the current item, or -1 if there is
// none.
func (pl *Playlist) CurrentIndex() int {
	pl.lock.RLock()
	defer pl.lock.RUnlock()
	return pl.current
}

// SetCurrentIndex moves the current-item marker. Out of range indices are
// ignored.
func (pl *Playlist) SetCurrentIndex(index int) {
	pl.lock.Lock()
	if index < -1 || index >= len(pl.items) {
		pl.lock.Unlock()
		return
	}
	changed := pl.current != index
	pl.current = index
	pl.lock.Unlock()
	if changed {
		pl.events.Emit(PlaylistEvent{})
	}
}

// IndexOf returns the index of the first item with the specified URL, or -1.
func (pl *Playlist) IndexOf(url string) int {
	pl.lock.RLock()
	defer pl.lock.RUnlock()
	for i, item := range pl.items {
		if item.URL == url {
			return i
		}
	}
	return -1
}

// Append adds items to the end of the playlist.
func (pl *Playlist) Append(items ...PlayItem) {
	if len(items) == 0 {
		return
	}
	pl.lock.Lock()
	pl.items = append(pl.items, items...)
	pl.lock.Unlock()
	pl.events.Emit(PlaylistEvent{})
}

// AppendAsync adds items in the background, e.g. the results of a directory
// scan. A PlaylistAppendedEvent is emitted once all items are visible for
// navigation.
func (pl *Playlist) AppendAsync(items []PlayItem) {
	go func() {
		for _, item := range items {
			pl.Append(item)
		}
		pl.events.Emit(PlaylistAppendedEvent{Items: items})
	}()
}

// Remove deletes the item at the specified index. Out of range indices are
// ignored. The current-item marker follows its item where possible.
func (pl *Playlist) Remove(index int) {
	pl.lock.Lock()
	if index < 0 || index >= len(pl.items) {
		pl.lock.Unlock()
		return
	}
	pl.items = append(pl.items[:index], pl.items[index+1:]...)
	if index < pl.current {
		pl.current--
	} else if pl.current >= len(pl.items) {
		pl.current = len(pl.items) - 1
	}
	pl.lock.Unlock()
	pl.events.Emit(PlaylistEvent{})
}

// Clear removes all items and resets the current-item marker.
func (pl *Playlist) Clear() {
	pl.lock.Lock()
	pl.items = nil
	pl.current = -1
	pl.lock.Unlock()
	pl.events.Emit(PlaylistEvent{})
}

// NextIndex returns the index following the current one, wrapping around at
// the end. It returns -1 when the playlist is empty.
func (pl *Playlist) NextIndex() int {
	pl.lock.RLock()
	defer pl.lock.RUnlock()
	if len(pl.items) == 0 {
		return -1
	}
	return (pl.current + 1) % len(pl.items)
}

// PrevIndex returns the index preceding the current one, wrapping around at
// the start. It returns -1 when the playlist is empty.
func (pl *Playlist) PrevIndex() int {
	pl.lock.RLock()
	defer pl.lock.RUnlock()
	if len(pl.items) == 0 {
		return -1
	}
	if pl.current <= 0 {
		return len(pl.items) - 1
	}
	return pl.current - 1
}
