package pageview

import (
	"testing"

	"github.com/bucketdiver/bucketdiver/pkg/dto"
	"github.com/bucketdiver/bucketdiver/pkg/results"
)

func recs(keys ...string) []dto.ObjectRecord {
	out := make([]dto.ObjectRecord, len(keys))
	for i, k := range keys {
		out[i] = dto.ObjectRecord{Key: k}
	}
	return out
}

func numberedRecs(n int) []dto.ObjectRecord {
	out := make([]dto.ObjectRecord, n)
	for i := range out {
		out[i] = dto.ObjectRecord{Key: string(rune('a'+i%26)) + "/obj"}
	}
	return out
}

func TestView_TotalPagesAndClamping(t *testing.T) {
	acc := results.New()
	acc.Append(numberedRecs(250))
	v := New(acc, 100)

	if got := v.TotalPages(); got != 3 {
		t.Errorf("Expected 3 pages for 250 records at size 100, got %d", got)
	}

	// Requesting page 5 clamps to the last page.
	v.GoToPage(5)
	if got := v.CurrentPage(); got != 3 {
		t.Errorf("Expected currentPage clamped to 3, got %d", got)
	}
	if got := len(v.CurrentPageRecords()); got != 50 {
		t.Errorf("Expected 50 records on the final page, got %d", got)
	}
}

func TestView_GoToPageIsIdempotent(t *testing.T) {
	acc := results.New()
	acc.Append(recs("a", "b", "c", "d", "e"))
	v := New(acc, 2)

	v.GoToPage(2)
	first := v.CurrentPageRecords()
	v.GoToPage(2)
	second := v.CurrentPageRecords()

	if len(first) != len(second) {
		t.Fatalf("Expected identical page lengths, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Key != second[i].Key {
			t.Errorf("Expected identical records at %d, got %q and %q",
				i, first[i].Key, second[i].Key)
		}
	}
}

func TestView_FilterRoundTrip(t *testing.T) {
	acc := results.New()
	acc.Append(recs("a/img1.png", "b/doc.txt", "img2.jpg"))
	v := New(acc, 100)

	v.SetFilter("img")
	page := v.CurrentPageRecords()
	if len(page) != 2 {
		t.Fatalf("Expected 2 matches for %q, got %d", "img", len(page))
	}
	if page[0].Key != "a/img1.png" || page[1].Key != "img2.jpg" {
		t.Errorf("Expected the two img keys in accumulator order, got %q and %q",
			page[0].Key, page[1].Key)
	}

	v.ClearFilter()
	if got := len(v.CurrentPageRecords()); got != 3 {
		t.Errorf("Expected the full 3-record view after clearing, got %d", got)
	}
}

func TestView_FilterIsCaseInsensitive(t *testing.T) {
	acc := results.New()
	acc.Append(recs("Reports/IMG_0001.JPG", "notes.txt"))
	v := New(acc, 100)

	v.SetFilter("img")
	if got := len(v.CurrentPageRecords()); got != 1 {
		t.Errorf("Expected a case-insensitive match, got %d records", got)
	}
}

func TestView_FilterEscapesRegexMetacharacters(t *testing.T) {
	acc := results.New()
	acc.Append(recs("report.2024.txt", "reportX2024Xtxt"))
	v := New(acc, 100)

	// The dots must match literally, not as wildcards.
	v.SetFilter(".2024.")
	page := v.CurrentPageRecords()
	if len(page) != 1 {
		t.Fatalf("Expected 1 literal match, got %d", len(page))
	}
	if page[0].Key != "report.2024.txt" {
		t.Errorf("Expected the literal-dot key, got %q", page[0].Key)
	}
}

func TestView_RecomputeFollowsGrowth(t *testing.T) {
	acc := results.New()
	acc.Append(recs("a", "b", "c"))
	v := New(acc, 2)

	if got := v.TotalPages(); got != 2 {
		t.Fatalf("Expected 2 pages, got %d", got)
	}

	acc.Append(recs("d", "e"))
	v.Recompute()
	if got := v.TotalPages(); got != 3 {
		t.Errorf("Expected 3 pages after growth, got %d", got)
	}
}

func TestView_EmptySourceHasOnePage(t *testing.T) {
	v := New(results.New(), 100)

	if got := v.TotalPages(); got != 1 {
		t.Errorf("Expected 1 page for an empty source, got %d", got)
	}
	if got := len(v.CurrentPageRecords()); got != 0 {
		t.Errorf("Expected no records, got %d", got)
	}
}

func TestView_Navigation(t *testing.T) {
	acc := results.New()
	acc.Append(recs("a", "b", "c", "d", "e"))
	v := New(acc, 2)

	v.NextPage()
	if got := v.CurrentPage(); got != 2 {
		t.Errorf("Expected page 2 after next, got %d", got)
	}
	v.LastPage()
	if got := v.CurrentPage(); got != 3 {
		t.Errorf("Expected page 3 after last, got %d", got)
	}
	v.NextPage()
	if got := v.CurrentPage(); got != 3 {
		t.Errorf("Expected next past the end to clamp at 3, got %d", got)
	}
	v.FirstPage()
	if got := v.CurrentPage(); got != 1 {
		t.Errorf("Expected page 1 after first, got %d", got)
	}
	v.PrevPage()
	if got := v.CurrentPage(); got != 1 {
		t.Errorf("Expected prev past the start to clamp at 1, got %d", got)
	}
}

func TestGroupByFolder(t *testing.T) {
	records := recs(
		"zoo/lion.txt",
		"alpha/beta.txt",
		"alpha/alpha.txt",
		"root2.txt",
		"root1.txt",
	)

	folders, rootFiles := GroupByFolder(records)

	if len(folders) != 2 {
		t.Fatalf("Expected 2 folders, got %d", len(folders))
	}
	if folders[0].Name != "alpha" || folders[1].Name != "zoo" {
		t.Errorf("Expected folders sorted lexicographically, got %q then %q",
			folders[0].Name, folders[1].Name)
	}
	if folders[0].Records[0].Key != "alpha/alpha.txt" {
		t.Errorf("Expected folder contents sorted by key, got %q first",
			folders[0].Records[0].Key)
	}

	if len(rootFiles) != 2 {
		t.Fatalf("Expected 2 root files, got %d", len(rootFiles))
	}
	if rootFiles[0].Key != "root1.txt" || rootFiles[1].Key != "root2.txt" {
		t.Errorf("Expected root files sorted, got %q then %q",
			rootFiles[0].Key, rootFiles[1].Key)
	}
}
