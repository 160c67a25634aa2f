package annotations

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrType reports a structural mismatch: wrong container or element type.
	ErrType = errors.New("annotations: type error")
	// ErrValue reports a semantic violation: empty data, unequal lengths,
	// malformed intervals or time axes.
	ErrValue = errors.New("annotations: value error")
)

// Container is the shape an annotation field must have.
type Container int

const (
	// Array is a numeric slice, possibly nested. The innermost element type is
	// checked and the total element count must be positive.
	Array Container = iota
	// List is a slice whose elements are checked one by one against the
	// expected type.
	List
)

func (c Container) String() string {
	switch c {
	case Array:
		return "array"
	case List:
		return "list"
	default:
		return fmt.Sprintf("Container(%d)", int(c))
	}
}

// Element types accepted by ValidateArrayLike.
var (
	Float      = reflect.TypeOf(float64(0))
	Int        = reflect.TypeOf(int(0))
	Str        = reflect.TypeOf("")
	FloatSlice = reflect.TypeOf([]float64(nil))
)

func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// ValidateArrayLike checks that value is nil, or a non-empty container of the
// given kind whose elements have type elem. A nil slice means the field was not
// annotated; an empty one is rejected so that "absent" has one spelling.
func ValidateArrayLike(value any, container Container, elem reflect.Type) error {
	if isNil(value) {
		return nil
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("%w: expected %s, got %T", ErrType, container, value)
	}

	switch container {
	case Array:
		inner := rv.Type().Elem()
		for inner.Kind() == reflect.Slice || inner.Kind() == reflect.Array {
			inner = inner.Elem()
		}
		if inner != elem {
			return fmt.Errorf("%w: array should have dtype %s, got %s", ErrType, elem, inner)
		}
		if countElements(rv) == 0 {
			return fmt.Errorf("%w: object should not be empty, use nil instead", ErrValue)
		}
	case List:
		for i := 0; i < rv.Len(); i++ {
			item := rv.Index(i)
			if item.Kind() == reflect.Interface {
				if item.IsNil() {
					return fmt.Errorf("%w: list element %d is nil, expected %s", ErrType, i, elem)
				}
				item = item.Elem()
			}
			if item.Type() != elem {
				return fmt.Errorf("%w: list elements should all have type %s, element %d is %s", ErrType, elem, i, item.Type())
			}
		}
		if rv.Len() == 0 {
			return fmt.Errorf("%w: object should not be empty, use nil instead", ErrValue)
		}
	default:
		return fmt.Errorf("%w: unknown container %s", ErrType, container)
	}
	return nil
}

func countElements(rv reflect.Value) int {
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return 1
	}
	n := 0
	for i := 0; i < rv.Len(); i++ {
		n += countElements(rv.Index(i))
	}
	return n
}

// ValidateLengthsEqual checks that every non-nil field has the same length.
// Nil fields are skipped.
func ValidateLengthsEqual(fields ...any) error {
	ref := -1
	for i, f := range fields {
		if isNil(f) {
			continue
		}
		rv := reflect.ValueOf(f)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array, reflect.String, reflect.Map:
		default:
			return fmt.Errorf("%w: field %d of type %T has no length", ErrType, i, f)
		}
		if ref < 0 {
			ref = rv.Len()
			continue
		}
		if rv.Len() != ref {
			return fmt.Errorf("%w: arrays have unequal length (%d != %d)", ErrValue, ref, rv.Len())
		}
	}
	return nil
}

// ValidateTimes checks that times is non-negative and strictly increasing.
func ValidateTimes(times []float64) error {
	if times == nil {
		return nil
	}
	for i, t := range times {
		if t < 0 {
			return fmt.Errorf("%w: times should be positive numbers, got %v at index %d", ErrValue, t, i)
		}
		if i > 0 && t-times[i-1] <= 0 {
			return fmt.Errorf("%w: times should be strictly increasing, got %v after %v", ErrValue, t, times[i-1])
		}
	}
	return nil
}

// ValidateIntervals checks an (n x 2) array of non-negative [start, end]
// pairs with end >= start. Zero-length intervals are allowed.
func ValidateIntervals(intervals Intervals) error {
	if intervals == nil {
		return nil
	}
	for i, row := range intervals {
		if len(row) != 2 {
			return fmt.Errorf("%w: intervals should be an (n x 2) array, row %d has %d columns", ErrValue, i, len(row))
		}
	}
	for i, row := range intervals {
		if row[0] < 0 || row[1] < 0 {
			return fmt.Errorf("%w: interval values should be non-negative, row %d is %v", ErrValue, i, row)
		}
		if row[1]-row[0] < 0 {
			return fmt.Errorf("%w: interval end should not precede its start, row %d is %v", ErrValue, i, row)
		}
	}
	return nil
}
