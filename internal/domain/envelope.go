package domain

import "time"

// Envelope wraps every response of the commerce API.
type Envelope[T any] struct {
	Success   bool      `json:"success"`
	Data      T         `json:"data"`
	Message   string    `json:"message"`
	Timestamp Timestamp `json:"timestamp"`
}

// OK builds a successful envelope stamped with the current time.
func OK[T any](data T, message string) Envelope[T] {
	return Envelope[T]{Success: true, Data: data, Message: message, Timestamp: Timestamp{time.Now().UTC()}}
}

// Fail builds a domain failure envelope.
func Fail(message string) Envelope[any] {
	return Envelope[any]{Success: false, Message: message, Timestamp: Timestamp{time.Now().UTC()}}
}

// Page is the paginated list shape.
type Page[T any] struct {
	Content          []T   `json:"content"`
	TotalElements    int64 `json:"totalElements"`
	TotalPages       int   `json:"totalPages"`
	Size             int   `json:"size"`
	Number           int   `json:"number"`
	First            bool  `json:"first"`
	Last             bool  `json:"last"`
	NumberOfElements int   `json:"numberOfElements"`
}

// NewPage slices items into the requested zero-based page.
func NewPage[T any](items []T, number, size int) Page[T] {
	if size <= 0 {
		size = 20
	}
	if number < 0 {
		number = 0
	}
	total := len(items)
	pages := (total + size - 1) / size
	start := number * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	content := make([]T, end-start)
	copy(content, items[start:end])
	return Page[T]{
		Content:          content,
		TotalElements:    int64(total),
		TotalPages:       pages,
		Size:             size,
		Number:           number,
		First:            number == 0,
		Last:             number >= pages-1,
		NumberOfElements: len(content),
	}
}
