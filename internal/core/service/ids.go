package service

import (
	"booklist/internal/core/domain/models"
	"booklist/internal/core/domain/ports"
	"time"
)

var (
	_ ports.IDAllocator = SequenceAllocator{}
	_ ports.IDAllocator = (*ClockAllocator)(nil)
)

func maxID(books []models.BookToRead) int64 {
	var m int64
	for _, b := range books {
		if b.ID > m {
			m = b.ID
		}
	}
	return m
}

// SequenceAllocator returns one more than the largest id in the list.
type SequenceAllocator struct{}

func (SequenceAllocator) NextID(current []models.BookToRead) int64 {
	return maxID(current) + 1
}

// ClockAllocator uses the current time in milliseconds, bumped past the
// largest existing id when the clock has not moved forward.
type ClockAllocator struct {
	Now func() time.Time
}

func (a *ClockAllocator) NextID(current []models.BookToRead) int64 {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	id := now().UnixMilli()
	if m := maxID(current); id <= m {
		id = m + 1
	}
	return id
}
