package feed

import (
	"testing"
)

func TestFilterer_KeepsOnlyFormC(t *testing.T) {
	filterer := NewFilterer()

	entries := []Entry{
		{Title: "C - Acme Robotics Inc. (0001234567) (Filer)", Link: "a"},
		{Title: "D - Beta Holdings LLC (0007654321) (Filer)", Link: "b"},
	}

	result := filterer.Run(entries, &Config{Marker: "C -"})

	if len(result) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(result))
	}
	if result[0].Link != "a" {
		t.Errorf("Expected Form C entry to be kept, got '%s'", result[0].Title)
	}
}

func TestFilterer_RejectsOtherFormCVariants(t *testing.T) {
	filterer := NewFilterer()

	titles := []string{
		"C-U - Acme Robotics Inc. (0001234567) (Filer)",
		"C/A - Acme Robotics Inc. (0001234567) (Filer)",
		"C-AR - Acme Robotics Inc. (0001234567) (Filer)",
		"c - lowercase marker",
		" C - leading space",
		"",
	}

	entries := make([]Entry, 0, len(titles))
	for _, title := range titles {
		entries = append(entries, Entry{Title: title})
	}

	result := filterer.Run(entries, &Config{Marker: "C -"})

	if len(result) != 0 {
		t.Errorf("Expected no entries, got %d: %+v", len(result), result)
	}
}

func TestFilterer_PreservesOrder(t *testing.T) {
	filterer := NewFilterer()

	entries := []Entry{
		{Title: "C - First", Link: "1"},
		{Title: "D - Skipped", Link: "2"},
		{Title: "C - Second", Link: "3"},
		{Title: "C - Third", Link: "4"},
	}

	result := filterer.Run(entries, &Config{Marker: "C -"})

	expected := []string{"1", "3", "4"}
	if len(result) != len(expected) {
		t.Fatalf("Expected %d entries, got %d", len(expected), len(result))
	}
	for i, link := range expected {
		if result[i].Link != link {
			t.Errorf("Expected entry %d to be '%s', got '%s'", i, link, result[i].Link)
		}
	}
}

func TestFilterer_EmptyMarkerUsesDefault(t *testing.T) {
	filterer := NewFilterer()

	entries := []Entry{
		{Title: "C - Acme"},
		{Title: "D - Beta"},
	}

	result := filterer.Run(entries, &Config{})

	if len(result) != 1 || result[0].Title != "C - Acme" {
		t.Errorf("Expected default marker to keep only 'C - Acme', got %+v", result)
	}
}

func TestFilterer_CustomMarker(t *testing.T) {
	filterer := NewFilterer()

	entries := []Entry{
		{Title: "C - Acme"},
		{Title: "C-U - Acme progress update"},
	}

	result := filterer.Run(entries, &Config{Marker: "C-U -"})

	if len(result) != 1 || result[0].Title != "C-U - Acme progress update" {
		t.Errorf("Expected only the C-U entry, got %+v", result)
	}
}

func TestFilterer_EmptyInput(t *testing.T) {
	filterer := NewFilterer()

	result := filterer.Run(nil, &Config{Marker: "C -"})

	if len(result) != 0 {
		t.Errorf("Expected 0 entries, got %d", len(result))
	}
}
