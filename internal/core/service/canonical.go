package service

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"time"
)

// appendChunk serializes a chunk in the canonical form fed to the digest:
//
//	{"columns":["id","total"],"data":[[1,1.05e+01],[2,null]]}
//
// The encoding is a pure function of column names and driver values.
func appendChunk(dst []byte, columns []string, rows [][]any) []byte {
	dst = append(dst, `{"columns":[`...)
	for i, name := range columns {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = strconv.AppendQuote(dst, name)
	}
	dst = append(dst, `],"data":[`...)
	for i, row := range rows {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = appendRow(dst, row)
	}
	return append(dst, "]}"...)
}

func appendRow(dst []byte, row []any) []byte {
	dst = append(dst, '[')
	for i, v := range row {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = appendValue(dst, v)
	}
	return append(dst, ']')
}

// appendValue encodes one cell. Integers and reals never collide: reals
// always carry an exponent.
func appendValue(dst []byte, v any) []byte {
	switch x := v.(type) {
	case nil:
		return append(dst, "null"...)
	case int64:
		return strconv.AppendInt(dst, x, 10)
	case int:
		return strconv.AppendInt(dst, int64(x), 10)
	case int32:
		return strconv.AppendInt(dst, int64(x), 10)
	case float64:
		return appendFloat(dst, x)
	case float32:
		return appendFloat(dst, float64(x))
	case bool:
		return strconv.AppendBool(dst, x)
	case string:
		return strconv.AppendQuote(dst, x)
	case []byte:
		dst = append(dst, "x'"...)
		dst = hex.AppendEncode(dst, x)
		return append(dst, '\'')
	case time.Time:
		return strconv.AppendQuote(dst, x.UTC().Format(time.RFC3339Nano))
	default:
		return strconv.AppendQuote(dst, fmt.Sprint(x))
	}
}

func appendFloat(dst []byte, f float64) []byte {
	switch {
	case math.IsNaN(f):
		return append(dst, "NaN"...)
	case math.IsInf(f, 1):
		return append(dst, "Infinity"...)
	case math.IsInf(f, -1):
		return append(dst, "-Infinity"...)
	default:
		return strconv.AppendFloat(dst, f, 'e', -1, 64)
	}
}

// emptyChunk is what an empty table contributes: the header alone.
func emptyChunk(columns []string) []byte {
	return appendChunk(nil, columns, nil)
}
