package media

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrMalformedRange      = errors.New("malformed range header")
	ErrRangeNotSatisfiable = errors.New("range not satisfiable")
)

// ByteRange is a span of Length bytes starting at Offset.
type ByteRange struct {
	Offset int64
	Length int64
}

func (b ByteRange) Last() int64 { return b.Offset + b.Length - 1 }

// ContentRange formats b for a Content-Range header of a size byte body.
func (b ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", b.Offset, b.Last(), size)
}

// ParseByteRange reads the first range of a Range header against a body
// of size bytes. An empty header yields nil. Later ranges of a multi-range
// request are ignored and an end past the body is clamped.
func ParseByteRange(header string, size int64) (*ByteRange, error) {
	if header == "" {
		return nil, nil
	}
	set, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, ErrMalformedRange
	}
	if first, _, multi := strings.Cut(set, ","); multi {
		set = first
	}
	from, to, ok := strings.Cut(strings.TrimSpace(set), "-")
	if !ok {
		return nil, ErrMalformedRange
	}

	// "-N" is the last N bytes.
	if from == "" {
		n, err := strconv.ParseInt(to, 10, 64)
		if err != nil || n <= 0 {
			return nil, ErrMalformedRange
		}
		if size == 0 {
			return nil, ErrRangeNotSatisfiable
		}
		n = min(n, size)
		return &ByteRange{Offset: size - n, Length: n}, nil
	}

	start, err := strconv.ParseInt(from, 10, 64)
	if err != nil || start < 0 {
		return nil, ErrMalformedRange
	}
	end := size - 1
	if to != "" {
		if end, err = strconv.ParseInt(to, 10, 64); err != nil {
			return nil, ErrMalformedRange
		}
		end = min(end, size-1)
	}
	if start >= size || start > end {
		return nil, ErrRangeNotSatisfiable
	}
	return &ByteRange{Offset: start, Length: end - start + 1}, nil
}
