package decode

import (
	"fmt"
	"sync"
)

// node represents an internal linked list node for the record buffer.
type node struct {
	rec  *Record
	next *node
}

// RecordBuffer implements a thread-safe buffer that keeps decoded
// telemetry records in timestamp order while they stream in from a
// decoder whose output may interleave. Records with equal timestamps keep
// their arrival order.
type RecordBuffer struct {
	capacity   int // Maximum number of records to store
	flushCount int // Number of records to remove when buffer reaches capacity

	mu   sync.Mutex
	head *node
	size int
}

// NewRecordBuffer creates a buffer storing up to capacity records and
// removing flushCount records when full. Returns an error if parameters
// are invalid.
func NewRecordBuffer(capacity, flushCount int) (*RecordBuffer, error) {
	if capacity <= 0 || flushCount <= 0 || flushCount > capacity {
		return nil, fmt.Errorf("invalid buffer parameters: capacity=%d, toFlush=%d", capacity, flushCount)
	}
	return &RecordBuffer{
		capacity:   capacity,
		flushCount: flushCount,
	}, nil
}

// Insert adds a record at its timestamp position. Returns an error if the
// record is nil.
func (rb *RecordBuffer) Insert(rec *Record) error {
	if rec == nil {
		return fmt.Errorf("cannot insert nil record")
	}

	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.head == nil {
		rb.head = &node{rec: rec}
		rb.size++
		return nil
	}

	// Special case: record belongs before head
	if rec.TimestampMs < rb.head.rec.TimestampMs {
		rb.head = &node{rec: rec, next: rb.head}
		rb.size++
		return nil
	}

	current := rb.head
	for current != nil {
		if current.next == nil || current.next.rec.TimestampMs > rec.TimestampMs {
			current.next = &node{rec: rec, next: current.next}
			rb.size++
			return nil
		}
		current = current.next
	}

	return nil
}

// IsFull returns true if the buffer has reached its capacity.
func (rb *RecordBuffer) IsFull() bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	return rb.size >= rb.capacity
}

// Flush removes and returns the oldest records from the buffer. Returns
// nil if the buffer is empty. The number of records returned is
// determined by the flushCount parameter and buffer state.
func (rb *RecordBuffer) Flush() []*Record {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.head == nil || rb.size == 0 {
		return nil
	}

	count := rb.flushCount
	if rb.size > rb.capacity {
		count += rb.size - rb.capacity
	}
	count = min(count, rb.size)

	results := make([]*Record, 0, count)
	current := rb.head
	for i := 0; i < count && current != nil; i++ {
		results = append(results, current.rec)
		current = current.next
	}

	rb.head = current
	rb.size -= len(results)
	return results
}

// DrainAll removes and returns all records from the buffer. Returns nil
// if the buffer is empty.
func (rb *RecordBuffer) DrainAll() []*Record {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.head == nil || rb.size == 0 {
		return nil
	}

	results := make([]*Record, 0, rb.size)
	current := rb.head
	for current != nil {
		results = append(results, current.rec)
		current = current.next
	}

	rb.head = nil
	rb.size = 0
	return results
}

// Size returns the current number of records in the buffer.
func (rb *RecordBuffer) Size() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.size
}

// Clear removes all records from the buffer.
func (rb *RecordBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.head = nil
	rb.size = 0
}
