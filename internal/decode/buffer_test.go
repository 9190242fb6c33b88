package decode

import (
	"testing"
)

func rec(ms int64) *Record {
	return &Record{TimestampMs: ms}
}

func TestRecordBuffer_Ordering(t *testing.T) {
	rb, err := NewRecordBuffer(10, 5)
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}

	// Records arrive interleaved, as a multi-channel decoder emits them
	timestamps := []int64{0, 200, 100, 500, 300, 300, 400}
	for i, ms := range timestamps {
		if err := rb.Insert(rec(ms)); err != nil {
			t.Errorf("Failed to insert record %d: %v", i, err)
		}
	}

	if size := rb.Size(); size != len(timestamps) {
		t.Errorf("Expected buffer size %d, got %d", len(timestamps), size)
	}

	results := rb.DrainAll()
	if len(results) != len(timestamps) {
		t.Fatalf("Expected %d results, got %d", len(timestamps), len(results))
	}

	expected := []int64{0, 100, 200, 300, 300, 400, 500}
	for i, ms := range expected {
		if results[i].TimestampMs != ms {
			t.Errorf("Result %d: expected timestamp %d ms, got %d ms", i, ms, results[i].TimestampMs)
		}
	}
}

func TestRecordBuffer_FlushBehavior(t *testing.T) {
	rb, err := NewRecordBuffer(3, 2)
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}

	for i, ms := range []int64{2000, 1000, 3000} {
		if err := rb.Insert(rec(ms)); err != nil {
			t.Errorf("Failed to insert record %d: %v", i, err)
		}
	}

	if !rb.IsFull() {
		t.Error("Buffer should be full")
	}

	flushed := rb.Flush()
	if len(flushed) != 2 {
		t.Errorf("Expected 2 flushed items, got %d", len(flushed))
	}

	if size := rb.Size(); size != 1 {
		t.Errorf("Expected remaining size 1, got %d", size)
	}

	expected := []int64{1000, 2000}
	for i, ms := range expected {
		if flushed[i].TimestampMs != ms {
			t.Errorf("Flushed result %d: expected timestamp %d ms, got %d ms", i, ms, flushed[i].TimestampMs)
		}
	}
}

func TestRecordBuffer_EdgeCases(t *testing.T) {
	rb, err := NewRecordBuffer(5, 2)
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}

	if err := rb.Insert(nil); err == nil {
		t.Error("Expected error when inserting nil record")
	}

	if rb.Flush() != nil {
		t.Error("Flush on empty buffer should return nil")
	}
	if rb.DrainAll() != nil {
		t.Error("DrainAll on empty buffer should return nil")
	}
	if rb.IsFull() {
		t.Error("Empty buffer should not be full")
	}
	if rb.Size() != 0 {
		t.Error("Empty buffer should have size 0")
	}

	testCases := []struct {
		name     string
		capacity int
		flush    int
	}{
		{"invalid capacity", 0, 1},
		{"invalid flush count", 5, 6},
		{"negative flush count", 5, -1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewRecordBuffer(tc.capacity, tc.flush); err == nil {
				t.Error("Expected error for invalid parameters")
			}
		})
	}
}
