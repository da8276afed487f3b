package harvest

import (
	"errors"
	"testing"

	"listing-harvester/models"
	"listing-harvester/scraper"
	"listing-harvester/scraper/static"
)

func TestRescanOfUnchangedPageAddsNothing(t *testing.T) {
	b, err := static.New(itemSel, page(false,
		card("1", "Loft", "9.1"),
		card("2", "Studio", "7.4"),
		card("", "No id at all", "8.0"),
	))
	if err != nil {
		t.Fatal(err)
	}
	s, _ := newTestSession(b, testOptions())

	if n := s.processVisibleItems(); n != 3 {
		t.Fatalf("scanned: got %d, want 3", n)
	}
	results, seen := len(s.results), s.seen.Size()

	s.processVisibleItems()
	if len(s.results) != results {
		t.Errorf("results grew on re-scan: %d -> %d", results, len(s.results))
	}
	if s.seen.Size() != seen {
		t.Errorf("seen set grew on re-scan: %d -> %d", seen, s.seen.Size())
	}
	if results != 3 || seen != 3 {
		t.Errorf("first pass: results %d, seen %d; want 3 and 3", results, seen)
	}
}

func TestPartialRecordKeepsMissingFieldEmpty(t *testing.T) {
	b := &fakeBrowser{items: []scraper.Node{
		fakeItem("1", "Riverside", "9.3"),
		fakeItem("2", "Garden room", ""),
		fakeItem("3", "", "6.8"),
	}}
	s, buf := newTestSession(b, testOptions())

	s.processVisibleItems()

	want := []models.ListingItem{
		{Title: "Riverside", Score: "9.3", Fingerprint: "id:1"},
		{Title: "Garden room", Score: "", Fingerprint: "id:2"},
		{Title: "", Score: "6.8", Fingerprint: "id:3"},
	}
	if len(s.results) != len(want) {
		t.Fatalf("results: got %d, want %d", len(s.results), len(want))
	}
	for i := range want {
		if s.results[i] != want[i] {
			t.Errorf("result %d: got %+v, want %+v", i, s.results[i], want[i])
		}
	}
	assertLogged(t, buf, "DEBUG", "Error extracting score")
}

func TestEmptyRecordIsSeenButNotStored(t *testing.T) {
	b := &fakeBrowser{items: []scraper.Node{fakeItem("ghost", "", "")}}
	s, buf := newTestSession(b, testOptions())

	s.processVisibleItems()

	if len(s.results) != 0 {
		t.Errorf("empty record should not be stored, got %+v", s.results)
	}
	if !s.seen.Contains("id:ghost") {
		t.Error("fingerprint of an unparseable node should still be marked seen")
	}
	assertLogged(t, buf, "DEBUG", "No fields extracted for id:ghost")
}

func TestScanFailureCountsAsEmptyPass(t *testing.T) {
	b := &fakeBrowser{findErr: errors.New("execution context was destroyed")}
	s, buf := newTestSession(b, testOptions())

	if n := s.processVisibleItems(); n != 0 {
		t.Errorf("scanned: got %d, want 0", n)
	}
	if len(s.results) != 0 || s.seen.Size() != 0 {
		t.Error("a failed scan must not touch results or the seen set")
	}
	assertLogged(t, buf, "ERROR", "Error processing items")
}

func TestUnfingerprintableNodeIsSkippedNotSeen(t *testing.T) {
	broken := &fakeNode{htmlErr: errors.New("node detached")}
	b := &fakeBrowser{items: []scraper.Node{broken, fakeItem("ok", "Fine", "8.0")}}
	s, buf := newTestSession(b, testOptions())

	s.processVisibleItems()

	if len(s.results) != 1 || s.results[0].Title != "Fine" {
		t.Errorf("the healthy node should still be harvested, got %+v", s.results)
	}
	if s.seen.Size() != 1 {
		t.Errorf("seen: got %d, want 1", s.seen.Size())
	}
	assertLogged(t, buf, "DEBUG", "Skipping node 0")
}

func TestBatchesEmittedWhileScanning(t *testing.T) {
	opts := testOptions()
	opts.BatchSize = 2
	b := &fakeBrowser{items: []scraper.Node{
		fakeItem("1", "A", "1"), fakeItem("2", "B", "2"),
		fakeItem("3", "C", "3"), fakeItem("4", "D", "4"), fakeItem("5", "E", "5"),
	}}
	s, _ := newTestSession(b, opts)

	var sizes []int
	s.OnBatch(func(batch []models.ListingItem) error {
		sizes = append(sizes, len(batch))
		return nil
	})

	s.processVisibleItems()

	if len(sizes) != 2 || sizes[0] != 2 || sizes[1] != 2 {
		t.Errorf("batch sizes during scan: got %v, want [2 2]", sizes)
	}
	if len(s.pending) != 1 {
		t.Errorf("pending: got %d, want 1", len(s.pending))
	}
}

func TestFailedBatchStaysPending(t *testing.T) {
	opts := testOptions()
	opts.BatchSize = 1
	b := &fakeBrowser{items: []scraper.Node{fakeItem("1", "A", "1"), fakeItem("2", "B", "2")}}
	s, buf := newTestSession(b, opts)

	fail := true
	var delivered []models.ListingItem
	s.OnBatch(func(batch []models.ListingItem) error {
		if fail {
			fail = false
			return errors.New("db down")
		}
		delivered = append(delivered, batch...)
		return nil
	})

	s.processVisibleItems()

	if len(delivered) != 2 {
		t.Errorf("the retried emission should carry both items, got %+v", delivered)
	}
	if len(s.pending) != 0 {
		t.Errorf("pending: got %d, want 0", len(s.pending))
	}
	assertLogged(t, buf, "ERROR", "Emitting batch failed")
}
