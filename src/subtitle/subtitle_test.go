package subtitle

import "testing"

func TestBestEmpty(t *testing.T) {
	if _, ok := Best(nil); ok {
		t.Fatalf("Best of no candidates should not succeed")
	}
}

func TestBestHighestScore(t *testing.T) {
	best, ok := Best([]Candidate{
		{Name: "a.srt", Score: 0.2},
		{Name: "b.srt", Score: 0.9},
		{Name: "c.srt", Score: 0.5},
	})
	if !ok {
		t.Fatal("Expected a best candidate")
	}
	if best.Name != "b.srt" {
		t.Fatalf("Unexpected best candidate: %q", best.Name)
	}
}

func TestBestTieKeepsFirst(t *testing.T) {
	best, _ := Best([]Candidate{
		{Name: "first.srt", Score: 0.5},
		{Name: "second.srt", Score: 0.5},
	})
	if best.Name != "first.srt" {
		t.Fatalf("Ties should resolve to the first candidate, got %q", best.Name)
	}
}
