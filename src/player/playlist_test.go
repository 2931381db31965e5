package player

import (
	"testing"

	"vidbox/src/util"
)

func TestPlaylistAppendAndGet(t *testing.T) {
	pl := NewPlaylist()
	pl.Append(NewPlayItem("/films/a.mkv"), NewPlayItem("/films/b.mkv"))
	if pl.Count() != 2 {
		t.Fatalf("Expected 2 items, got %d", pl.Count())
	}
	item, ok := pl.Get(0)
	if !ok || item.URL != "/films/a.mkv" {
		t.Fatalf("Unexpected item at 0: %v, %v", item, ok)
	}
	if item.Title != "a" {
		t.Fatalf("Title should be derived from the filename, got %q", item.Title)
	}
	if _, ok := pl.Get(2); ok {
		t.Fatalf("Get past the end should not succeed")
	}
	if _, ok := pl.Get(-1); ok {
		t.Fatalf("Get(-1) should not succeed")
	}
}

func TestPlaylistIndexOf(t *testing.T) {
	pl := NewPlaylist()
	pl.Append(NewPlayItem("/films/a.mkv"), NewPlayItem("/films/b.mkv"), NewPlayItem("/films/a.mkv"))
	if i := pl.IndexOf("/films/b.mkv"); i != 1 {
		t.Fatalf("IndexOf b = %d, want 1", i)
	}
	if i := pl.IndexOf("/films/a.mkv"); i != 0 {
		t.Fatalf("IndexOf should return the first match, got %d", i)
	}
	if i := pl.IndexOf("/films/nope.mkv"); i != -1 {
		t.Fatalf("IndexOf unknown = %d, want -1", i)
	}
}

func TestPlaylistNavigationWrapsAround(t *testing.T) {
	pl := NewPlaylist()
	if pl.NextIndex() != -1 || pl.PrevIndex() != -1 {
		t.Fatalf("Navigating an empty playlist should yield -1")
	}

	pl.Append(NewPlayItem("/a"), NewPlayItem("/b"), NewPlayItem("/c"))
	if i := pl.NextIndex(); i != 0 {
		t.Fatalf("NextIndex without a current item = %d, want 0", i)
	}
	if i := pl.PrevIndex(); i != 2 {
		t.Fatalf("PrevIndex without a current item = %d, want 2", i)
	}

	pl.SetCurrentIndex(2)
	if i := pl.NextIndex(); i != 0 {
		t.Fatalf("NextIndex at the end = %d, want 0", i)
	}
	pl.SetCurrentIndex(0)
	if i := pl.PrevIndex(); i != 2 {
		t.Fatalf("PrevIndex at the start = %d, want 2", i)
	}
}

func TestPlaylistSetCurrentIndexBounds(t *testing.T) {
	pl := NewPlaylist()
	pl.Append(NewPlayItem("/a"))
	pl.SetCurrentIndex(0)
	pl.SetCurrentIndex(7)
	if i := pl.CurrentIndex(); i != 0 {
		t.Fatalf("Out of range SetCurrentIndex should be ignored, got %d", i)
	}
	pl.SetCurrentIndex(-1)
	if i := pl.CurrentIndex(); i != -1 {
		t.Fatalf("SetCurrentIndex(-1) should clear the marker, got %d", i)
	}
}

func TestPlaylistRemoveKeepsMarker(t *testing.T) {
	pl := NewPlaylist()
	pl.Append(NewPlayItem("/a"), NewPlayItem("/b"), NewPlayItem("/c"))
	pl.SetCurrentIndex(2)

	// Removing before the current item shifts the marker along with it.
	pl.Remove(0)
	if i := pl.CurrentIndex(); i != 1 {
		t.Fatalf("Marker should follow its item, got %d", i)
	}
	item, _ := pl.Get(pl.CurrentIndex())
	if item.URL != "/c" {
		t.Fatalf("Marker points at %q, want /c", item.URL)
	}

	// Removing the last item clamps the marker.
	pl.Remove(1)
	if i := pl.CurrentIndex(); i != 0 {
		t.Fatalf("Marker should clamp to the last item, got %d", i)
	}

	pl.Remove(9)
	if pl.Count() != 1 {
		t.Fatalf("Out of range Remove should be ignored")
	}
}

func TestPlaylistClear(t *testing.T) {
	pl := NewPlaylist()
	pl.Append(NewPlayItem("/a"), NewPlayItem("/b"))
	pl.SetCurrentIndex(1)
	pl.Clear()
	if pl.Count() != 0 || pl.CurrentIndex() != -1 {
		t.Fatalf("Clear should empty the list and reset the marker")
	}
}

func TestPlaylistAppendAsyncEmitsOnce(t *testing.T) {
	pl := NewPlaylist()
	items := []PlayItem{NewPlayItem("/a"), NewPlayItem("/b"), NewPlayItem("/c")}
	util.TestEventEmission(t, pl, PlaylistAppendedEvent{Items: items}, func() {
		pl.AppendAsync(items)
	})
	if pl.Count() != 3 {
		t.Fatalf("Expected 3 items after the append completed, got %d", pl.Count())
	}
}
