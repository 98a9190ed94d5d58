package typesys

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Built-in primitive TypeIDs. These mirror the out-of-the-box types
// the original C library ships (vh_type_int32, vh_type_String, ...);
// every heap/typevar/node package in this module registers against a
// *Registry that has at least these loaded.
const (
	TypeBool TypeID = iota + 1
	TypeInt16
	TypeInt32
	TypeInt64
	TypeFloat32
	TypeFloat64
	TypeString
)

// RegisterBuiltins loads the primitive scalar types into r. Safe to
// call once per Registry.
func RegisterBuiltins(r *Registry) error {
	types := []*Type{
		{ID: TypeBool, Name: "bool", Size: 1, MaxAlign: 1, Compare: compareBool, TAM: boolTAM()},
		{ID: TypeInt16, Name: "int16", Size: 2, MaxAlign: 2, Compare: compareInt16, TAM: int16TAM(), Accumulator: TypeInt64},
		{ID: TypeInt32, Name: "int32", Size: 4, MaxAlign: 4, Compare: compareInt32, TAM: int32TAM(), Accumulator: TypeInt64},
		{ID: TypeInt64, Name: "int64", Size: 8, MaxAlign: 8, Compare: compareInt64, TAM: int64TAM()},
		{ID: TypeFloat32, Name: "float32", Size: 4, MaxAlign: 4, Compare: compareFloat32, TAM: float32TAM(), Accumulator: TypeFloat64},
		{ID: TypeFloat64, Name: "float64", Size: 8, MaxAlign: 8, Compare: compareFloat64, TAM: float64TAM()},
		{ID: TypeString, Name: "string", Size: 16, MaxAlign: 8, Compare: compareString, TAM: stringTAM()},
	}
	for _, t := range types {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func compareBool(a, b []byte) int { return int(a[0]) - int(b[0]) }

func compareInt16(a, b []byte) int {
	av := int16(binary.LittleEndian.Uint16(a))
	bv := int16(binary.LittleEndian.Uint16(b))
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}

func compareInt32(a, b []byte) int {
	av := int32(binary.LittleEndian.Uint32(a))
	bv := int32(binary.LittleEndian.Uint32(b))
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}

func compareInt64(a, b []byte) int {
	av := int64(binary.LittleEndian.Uint64(a))
	bv := int64(binary.LittleEndian.Uint64(b))
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}

func compareFloat32(a, b []byte) int {
	av := math.Float32frombits(binary.LittleEndian.Uint32(a))
	bv := math.Float32frombits(binary.LittleEndian.Uint32(b))
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}

func compareFloat64(a, b []byte) int {
	av := math.Float64frombits(binary.LittleEndian.Uint64(a))
	bv := math.Float64frombits(binary.LittleEndian.Uint64(b))
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}

func compareString(a, b []byte) int {
	return bytes.Compare(bytes.TrimRight(a, "\x00"), bytes.TrimRight(b, "\x00"))
}

func boolTAM() TAM {
	return TAM{
		MemsetGet: func(src []byte) ([]byte, error) { return append([]byte(nil), src[:1]...), nil },
		MemsetSet: func(dst, val []byte) error { dst[0] = val[0]; return nil },
		CstrGet:   func(src []byte, _ string) (string, error) { return fmt.Sprintf("%t", src[0] != 0), nil },
	}
}

func int16TAM() TAM {
	return TAM{
		MemsetGet: func(src []byte) ([]byte, error) { return append([]byte(nil), src[:2]...), nil },
		MemsetSet: func(dst, val []byte) error { copy(dst[:2], val[:2]); return nil },
		CstrGet: func(src []byte, _ string) (string, error) {
			return fmt.Sprintf("%d", int16(binary.LittleEndian.Uint16(src))), nil
		},
	}
}

func int32TAM() TAM {
	return TAM{
		MemsetGet: func(src []byte) ([]byte, error) { return append([]byte(nil), src[:4]...), nil },
		MemsetSet: func(dst, val []byte) error { copy(dst[:4], val[:4]); return nil },
		CstrGet: func(src []byte, _ string) (string, error) {
			return fmt.Sprintf("%d", int32(binary.LittleEndian.Uint32(src))), nil
		},
	}
}

func int64TAM() TAM {
	return TAM{
		MemsetGet: func(src []byte) ([]byte, error) { return append([]byte(nil), src[:8]...), nil },
		MemsetSet: func(dst, val []byte) error { copy(dst[:8], val[:8]); return nil },
		CstrGet: func(src []byte, _ string) (string, error) {
			return fmt.Sprintf("%d", int64(binary.LittleEndian.Uint64(src))), nil
		},
	}
}

func float32TAM() TAM {
	return TAM{
		MemsetGet: func(src []byte) ([]byte, error) { return append([]byte(nil), src[:4]...), nil },
		MemsetSet: func(dst, val []byte) error { copy(dst[:4], val[:4]); return nil },
	}
}

func float64TAM() TAM {
	return TAM{
		MemsetGet: func(src []byte) ([]byte, error) { return append([]byte(nil), src[:8]...), nil },
		MemsetSet: func(dst, val []byte) error { copy(dst[:8], val[:8]); return nil },
	}
}

func stringTAM() TAM {
	return TAM{
		MemsetGet: func(src []byte) ([]byte, error) { return append([]byte(nil), src...), nil },
		MemsetSet: func(dst, val []byte) error { copy(dst, val); return nil },
	}
}
