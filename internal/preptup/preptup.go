package preptup

import (
	"math"

	"github.com/kgearhart/vh/internal/heap"
	"github.com/kgearhart/vh/internal/typesys"
	"github.com/kgearhart/vh/internal/typevar"
	"github.com/kgearhart/vh/internal/verr"
)

// col is a PrepTupCol: one output column's recipe — where its value
// comes from (SearchPaths), whether each input chains from a prior
// column's already-computed value or is re-resolved from the source
// row (Chain), and an optional PrepCol to transform the resolved
// inputs before they land in the target column.
type col struct {
	targetColumn string
	targetIdx    int

	searchPaths []SearchPath
	chain       []bool

	prepCol PrepCol
}

// PrepTup is the column pipeline spec.md §4.7 describes: a sequence of
// output columns, each populated from one or more SearchPaths run
// against an input HeapTuple, optionally transformed by a PrepCol, and
// assembled into a HeapTupleDef inferred from the first row processed
// (vh_pt_create / vh_pt_col_add / vh_pt_input_htp).
type PrepTup struct {
	buffer *heap.Buffer

	cols               []*col
	targetColumnNames  map[string]int
	countTargetColumns int

	outputDef *heap.TupleDef
}

// New creates a PrepTup that allocates its output tuples through
// buffer.
func New(buffer *heap.Buffer) *PrepTup {
	return &PrepTup{buffer: buffer, targetColumnNames: make(map[string]int)}
}

// AddCol registers an output column (vh_pt_col_add). paths and chain
// must be the same length; chain[i] true means searchPaths[i]'s result
// should be the value already computed for this same target column by
// an earlier call to AddCol (letting later columns build on earlier
// ones), false means re-resolve it fresh from the input row. pc may be
// nil, in which case the single resolved input is copied through
// unchanged.
func (pt *PrepTup) AddCol(targetColumn string, paths []SearchPath, chain []bool, pc PrepCol) error {
	if targetColumn == "" {
		return verr.New(verr.KindInvalidHandle, "a target column name is required")
	}
	if len(paths) == 0 {
		return verr.New(verr.KindInvalidHandle, "at least one search path is required to add a column")
	}
	if len(chain) != len(paths) {
		return verr.New(verr.KindInvalidHandle, "chain flags must match the number of search paths")
	}

	c := &col{targetColumn: targetColumn, searchPaths: paths, chain: chain, prepCol: pc}

	if idx, exists := pt.targetColumnNames[targetColumn]; exists {
		c.targetIdx = idx
	} else {
		c.targetIdx = pt.countTargetColumns
		pt.targetColumnNames[targetColumn] = c.targetIdx
		pt.countTargetColumns++
	}

	pt.cols = append(pt.cols, c)
	return nil
}

// InputHTP runs every registered column's pipeline against in, and
// allocates the resulting row into pt's buffer, returning the new
// tuple (vh_pt_input_htp). The output HeapTupleDef is inferred from
// the first call's resolved column types and reused for every
// subsequent call.
func (pt *PrepTup) InputHTP(in *heap.Tuple) (*heap.Tuple, error) {
	targetCols := make([]*typevar.Slot, pt.countTargetColumns)
	for i := range targetCols {
		targetCols[i] = typevar.NewSlot()
	}

	ctx := Context{Tuple: in}

	for _, c := range pt.cols {
		resolved := make([]*typevar.Slot, len(c.searchPaths))

		for j, sp := range c.searchPaths {
			if c.chain[j] {
				resolved[j] = targetCols[c.targetIdx]
				continue
			}

			res, err := sp.Search(ctx)
			if err != nil {
				return nil, err
			}
			if res.Kind != KindField || res.Field == nil {
				return nil, verr.New(verr.KindInvalidHandle, "column %q: search path did not resolve a field", c.targetColumn)
			}
			v, err := in.GetField(fieldIndex(in.Def(), res.Field))
			if err != nil {
				return nil, err
			}
			s := typevar.NewSlot()
			s.StoreImmediate(v, typevar.CallerOwned)
			resolved[j] = s
		}

		if c.prepCol != nil {
			if err := c.prepCol.PopulateSlot(targetCols[c.targetIdx], resolved); err != nil {
				return nil, err
			}
		} else {
			v, err := resolved[0].Get()
			if err != nil {
				return nil, err
			}
			targetCols[c.targetIdx].StoreImmediate(v, typevar.CallerOwned)
		}
	}

	if pt.outputDef == nil {
		def, err := pt.buildOutputDef(targetCols)
		if err != nil {
			return nil, err
		}
		pt.outputDef = def
	}

	data := make([]byte, pt.outputDef.HeapSize)
	for i := 0; i < pt.countTargetColumns; i++ {
		v, err := targetCols[i].Get()
		if err != nil {
			return nil, err
		}
		f := &pt.outputDef.Fields[i]
		raw, err := encodeOutputScalar(v, f.Size)
		if err != nil {
			return nil, err
		}
		copy(data[f.Offset:f.Offset+f.Size], raw)
	}

	return pt.buffer.AllocTuple(pt.outputDef, data)
}

// buildOutputDef infers a HeapTupleDef from the resolved type of each
// target column's first row (pt_create_htd): each column's native
// type, in column-add order, becomes a field of the same name.
func (pt *PrepTup) buildOutputDef(targetCols []*typevar.Slot) (*heap.TupleDef, error) {
	seen := make(map[string]bool)
	var fields []heap.Field

	for _, c := range pt.cols {
		if seen[c.targetColumn] {
			continue
		}
		seen[c.targetColumn] = true

		v, err := targetCols[c.targetIdx].Get()
		if err != nil {
			return nil, err
		}
		size, maxAlign, ok := nativeSize(v.Kind)
		if !ok {
			return nil, verr.New(verr.KindTypeRegistryError,
				"preptup cannot determine the type stack for column %q", c.targetColumn)
		}
		fields = append(fields, heap.Field{
			Name:     c.targetColumn,
			TypeID:   kindToTypeID(v.Kind),
			Size:     size,
			MaxAlign: maxAlign,
		})
	}

	return heap.NewTupleDef(fields)
}

func fieldIndex(td *heap.TupleDef, f *heap.Field) int {
	for i := range td.Fields {
		if &td.Fields[i] == f {
			return i
		}
	}
	return -1
}

func nativeSize(k typevar.Kind) (size, maxAlign uint32, ok bool) {
	switch k {
	case typevar.KindBool:
		return 1, 1, true
	case typevar.KindInt16:
		return 2, 2, true
	case typevar.KindInt32:
		return 4, 4, true
	case typevar.KindInt64:
		return 8, 8, true
	case typevar.KindFloat32:
		return 4, 4, true
	case typevar.KindFloat64:
		return 8, 8, true
	case typevar.KindString:
		return 64, 1, true
	default:
		return 0, 0, false
	}
}

func kindToTypeID(k typevar.Kind) typesys.TypeID {
	switch k {
	case typevar.KindBool:
		return typesys.TypeBool
	case typevar.KindInt16:
		return typesys.TypeInt16
	case typevar.KindInt32:
		return typesys.TypeInt32
	case typevar.KindInt64:
		return typesys.TypeInt64
	case typevar.KindFloat32:
		return typesys.TypeFloat32
	case typevar.KindFloat64:
		return typesys.TypeFloat64
	case typevar.KindString:
		return typesys.TypeString
	default:
		return 0
	}
}

func encodeOutputScalar(v typevar.Value, size uint32) ([]byte, error) {
	out := make([]byte, size)
	switch v.Kind {
	case typevar.KindBool:
		if v.Bool() {
			out[0] = 1
		}
	case typevar.KindInt16:
		le16(out, uint16(v.Int16()))
	case typevar.KindInt32:
		le32(out, uint32(v.Int32()))
	case typevar.KindInt64:
		le64(out, uint64(v.Int64()))
	case typevar.KindFloat32:
		le32(out, math.Float32bits(v.Float32()))
	case typevar.KindFloat64:
		le64(out, math.Float64bits(v.Float64()))
	case typevar.KindString:
		copy(out, v.String())
	default:
		return nil, verr.New(verr.KindUnsupportedConv, "preptup: unsupported output value kind %d", v.Kind)
	}
	return out, nil
}

func le16(out []byte, v uint16) {
	out[0] = byte(v)
	out[1] = byte(v >> 8)
}

func le32(out []byte, v uint32) {
	out[0] = byte(v)
	out[1] = byte(v >> 8)
	out[2] = byte(v >> 16)
	out[3] = byte(v >> 24)
}

func le64(out []byte, v uint64) {
	for i := 0; i < 8; i++ {
		out[i] = byte(v >> (8 * uint(i)))
	}
}
