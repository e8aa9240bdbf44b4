package capability

import (
	"fmt"
	"strconv"
	"strings"
)

// Codec converts attribute values to and from their persisted string form.
type Codec[T any] struct {
	Encode func(T) string
	Decode func(string) (T, error)
}

// BoolCodec persists booleans as "TRUE" and "FALSE".
var BoolCodec = Codec[bool]{
	Encode: func(v bool) string {
		if v {
			return "TRUE"
		}
		return "FALSE"
	},
	Decode: func(s string) (bool, error) {
		switch strings.ToUpper(strings.TrimSpace(s)) {
		case "TRUE":
			return true, nil
		case "FALSE":
			return false, nil
		default:
			return false, fmt.Errorf("%w: %q is not TRUE or FALSE", ErrInvalidValue, s)
		}
	},
}

// IntCodec persists integers in base 10.
var IntCodec = Codec[int]{
	Encode: strconv.Itoa,
	Decode: func(s string) (int, error) {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		return v, nil
	},
}

// EnumCodec persists values of a small enumeration by name.
func EnumCodec[T comparable](names map[T]string) Codec[T] {
	reverse := make(map[string]T, len(names))
	for v, name := range names {
		reverse[name] = v
	}
	return Codec[T]{
		Encode: func(v T) string { return names[v] },
		Decode: func(s string) (T, error) {
			v, ok := reverse[strings.TrimSpace(s)]
			if !ok {
				var zero T
				return zero, fmt.Errorf("%w: unknown value %q", ErrInvalidValue, s)
			}
			return v, nil
		},
	}
}
