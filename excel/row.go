package excel

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/xivgo/sqpack"
)

// RowView is a decoded row (or subrow): the column layout it was read
// with, and the row-sized-plus-tail byte slice backing field access.
type RowView struct {
	Columns []ColumnDef
	RowSize int
	Bytes   []byte
	Header  RowHeader
}

// Field decodes column index i against the row's bytes, returning a
// concrete Go value: int8/uint8/int16/uint16/int32/uint32/float32/bool/
// string, matching the column's kind.
func (r *RowView) Field(i int) (interface{}, error) {
	if i < 0 || i >= len(r.Columns) {
		return nil, sqpack.NewInvalidOperation(fmt.Sprintf("Column index %d out of range.", i))
	}
	return decodeField(r.Columns[i], r.RowSize, r.Bytes)
}

func decodeField(col ColumnDef, rowSize int, data []byte) (interface{}, error) {
	off := int(col.Offset)

	if bit, ok := col.Kind.PackedBoolBit(); ok {
		if off >= len(data) {
			return nil, sqpack.NewResource("packed bool field", off+1, len(data))
		}
		return (data[off]>>bit)&1 == 1, nil
	}

	switch col.Kind {
	case ColumnString:
		if off+4 > len(data) {
			return nil, sqpack.NewResource("string pointer", off+4, len(data))
		}
		ptr := binary.BigEndian.Uint32(data[off : off+4])
		start := rowSize + int(ptr)
		if start > len(data) {
			return nil, sqpack.NewResource("string data", start, len(data))
		}
		nul := bytes.IndexByte(data[start:], 0)
		if nul < 0 {
			return nil, sqpack.NewResourcef(nil, "Failed to read string field. No terminating NUL before end of row.")
		}
		return string(data[start : start+nul]), nil

	case ColumnInt8:
		if off+1 > len(data) {
			return nil, sqpack.NewResource("int8 field", off+1, len(data))
		}
		return int8(data[off]), nil

	case ColumnUInt8:
		if off+1 > len(data) {
			return nil, sqpack.NewResource("uint8 field", off+1, len(data))
		}
		return data[off], nil

	case ColumnInt16:
		if off+2 > len(data) {
			return nil, sqpack.NewResource("int16 field", off+2, len(data))
		}
		return int16(binary.BigEndian.Uint16(data[off : off+2])), nil

	case ColumnUInt16:
		if off+2 > len(data) {
			return nil, sqpack.NewResource("uint16 field", off+2, len(data))
		}
		return binary.BigEndian.Uint16(data[off : off+2]), nil

	case ColumnInt32:
		if off+4 > len(data) {
			return nil, sqpack.NewResource("int32 field", off+4, len(data))
		}
		return int32(binary.BigEndian.Uint32(data[off : off+4])), nil

	case ColumnUInt32:
		if off+4 > len(data) {
			return nil, sqpack.NewResource("uint32 field", off+4, len(data))
		}
		return binary.BigEndian.Uint32(data[off : off+4]), nil

	case ColumnFloat32:
		if off+4 > len(data) {
			return nil, sqpack.NewResource("float32 field", off+4, len(data))
		}
		return math.Float32frombits(binary.BigEndian.Uint32(data[off : off+4])), nil

	default:
		return nil, sqpack.NewResourcef(nil, "Failed to read field. Unknown column kind %d.", col.Kind)
	}
}
