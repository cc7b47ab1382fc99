// Package indices turns frame selections such as "5,2,2,0" or "0:100:5"
// into the index lists accepted by the extractor.
package indices

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrZeroStep is returned for slices with a step of 0.
	ErrZeroStep = errors.New("indices: slice step cannot be zero")

	// ErrUnbounded is returned when a selection needs the stream length
	// but none is known.
	ErrUnbounded = errors.New("indices: selection needs a known frame count")

	// ErrSyntax is returned for malformed expressions.
	ErrSyntax = errors.New("indices: invalid expression")

	// ErrTooMany is returned when slices expand to more than MaxIndices.
	ErrTooMany = errors.New("indices: selection too large")
)

// MaxIndices caps how many indices the slices of one selection expand to.
const MaxIndices = 1 << 24

// Slice is a start:stop:step selection. Nil fields take their defaults.
type Slice struct {
	Start *int64
	Stop  *int64
	Step  *int64
}

// Resolve returns the indices selected from a sequence of length items,
// with negative bounds counted from the end and out-of-range bounds clamped.
func (s Slice) Resolve(length int64) ([]int64, error) {
	start, step, n, err := s.span(length)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	if n > MaxIndices {
		return nil, fmt.Errorf("%w: %d indices exceed %d", ErrTooMany, n, MaxIndices)
	}

	out := make([]int64, 0, n)
	for i := start; ; i += step {
		out = append(out, i)
		if uint64(len(out)) == n {
			break
		}
	}
	return out, nil
}

// span returns the first index, the step and the number of indices the
// slice selects from length items.
func (s Slice) span(length int64) (start, step int64, n uint64, err error) {
	step = 1
	if s.Step != nil {
		step = *s.Step
	}
	if step == 0 {
		return 0, 0, 0, ErrZeroStep
	}
	if length < 0 {
		length = 0
	}

	var stop int64
	if step > 0 {
		start = bound(s.Start, 0, length, 0, length)
		stop = bound(s.Stop, length, length, 0, length)
	} else {
		start = bound(s.Start, length-1, length, -1, length-1)
		stop = bound(s.Stop, -1, length, -1, length-1)
	}
	return start, step, count(start, stop, step), nil
}

// count returns how many steps from start stay before stop without
// computing any index past it.
func count(start, stop, step int64) uint64 {
	var span, stride uint64
	if step > 0 {
		if start >= stop {
			return 0
		}
		span, stride = uint64(stop-start), uint64(step)
	} else {
		if start <= stop {
			return 0
		}
		span, stride = uint64(start-stop), uint64(-step)
	}
	return (span-1)/stride + 1
}

// bound resolves one slice bound: nil takes def, negatives wrap by length,
// and the result is clamped to [lo, hi].
func bound(v *int64, def, length, lo, hi int64) int64 {
	if v == nil {
		return def
	}
	x := *v
	if x < 0 {
		x += length
	}
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// bounded reports whether the slice can be resolved without a length.
func (s Slice) bounded() bool {
	if s.Step != nil && *s.Step < 0 {
		return false
	}
	if s.Stop == nil || *s.Stop < 0 {
		return false
	}
	return s.Start == nil || *s.Start >= 0
}

func (s Slice) String() string {
	part := func(v *int64) string {
		if v == nil {
			return ""
		}
		return strconv.FormatInt(*v, 10)
	}
	str := part(s.Start) + ":" + part(s.Stop)
	if s.Step != nil {
		str += ":" + part(s.Step)
	}
	return str
}

// item is one comma-separated element of a selection.
type item struct {
	index int64
	slice *Slice
}

// Selector is a parsed selection expression.
type Selector struct {
	items []item
}

// Parse reads a comma-separated list of indices and slices, e.g.
// "7", "5,2,2,0", "0:100:5", "::5" or "-20:".
func Parse(expr string) (Selector, error) {
	var sel Selector
	for _, raw := range strings.Split(expr, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return Selector{}, fmt.Errorf("%w: empty element in %q", ErrSyntax, expr)
		}

		if !strings.Contains(raw, ":") {
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return Selector{}, fmt.Errorf("%w: %q", ErrSyntax, raw)
			}
			sel.items = append(sel.items, item{index: v})
			continue
		}

		parts := strings.Split(raw, ":")
		if len(parts) > 3 {
			return Selector{}, fmt.Errorf("%w: %q", ErrSyntax, raw)
		}
		var s Slice
		fields := []**int64{&s.Start, &s.Stop, &s.Step}
		for i, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			v, err := strconv.ParseInt(p, 10, 64)
			if err != nil {
				return Selector{}, fmt.Errorf("%w: %q", ErrSyntax, raw)
			}
			*fields[i] = &v
		}
		if s.Step != nil && *s.Step == 0 {
			return Selector{}, ErrZeroStep
		}
		sel.items = append(sel.items, item{slice: &s})
	}
	return sel, nil
}

// Indices expands the selection. maxSize is the frame count of the
// stream, or <= 0 when unknown. Plain indices pass through unchanged.
func (s Selector) Indices(maxSize int64) ([]int64, error) {
	lengths := make([]int64, len(s.items))
	var expanded uint64
	for i, it := range s.items {
		if it.slice == nil {
			continue
		}
		if maxSize <= 0 && !it.slice.bounded() {
			return nil, fmt.Errorf("%w: %s", ErrUnbounded, it.slice)
		}
		lengths[i] = maxSize
		if maxSize <= 0 {
			lengths[i] = *it.slice.Stop
		}
		_, _, n, err := it.slice.span(lengths[i])
		if err != nil {
			return nil, err
		}
		if expanded += n; expanded > MaxIndices {
			return nil, fmt.Errorf("%w: more than %d indices", ErrTooMany, MaxIndices)
		}
	}

	var out []int64
	for i, it := range s.items {
		if it.slice == nil {
			out = append(out, it.index)
			continue
		}
		idx, err := it.slice.Resolve(lengths[i])
		if err != nil {
			return nil, err
		}
		out = append(out, idx...)
	}
	return out, nil
}

// NeedsLength reports whether Indices requires a known frame count.
func (s Selector) NeedsLength() bool {
	for _, it := range s.items {
		if it.slice != nil && !it.slice.bounded() {
			return true
		}
	}
	return false
}
