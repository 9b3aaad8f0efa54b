// FILE: codec.go
package hotwire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/davecgh/go-spew/spew"
)

// argKind identifies how a single argument is laid out in a queue record.
// Fixed-width kinds are written at their natural alignment; text kinds are
// written unaligned as a u32 length prefix, the bytes, and a NUL terminator.
type argKind uint8

const (
	kindBool argKind = iota + 1
	kindInt
	kindInt8
	kindInt16
	kindInt32
	kindInt64
	kindUint
	kindUint8
	kindUint16
	kindUint32
	kindUint64
	kindFloat32
	kindFloat64
	kindDuration
	kindTime
	kindString
	kindBytes
	kindRendered // pre-rendered text: error, fmt.Stringer, or anything else
)

var kindWidth = [...]int{
	kindBool: 1, kindInt: 8, kindInt8: 1, kindInt16: 2, kindInt32: 4,
	kindInt64: 8, kindUint: 8, kindUint8: 1, kindUint16: 2, kindUint32: 4,
	kindUint64: 8, kindFloat32: 4, kindFloat64: 8, kindDuration: 8, kindTime: 8,
}

// dumper renders unsupported aggregates (structs, maps, pointers) into a
// compact, deterministic text form at encode time. Rendering on the hot path
// is the cost of keeping arbitrary values out of the byte queue.
var dumper = &spew.ConfigState{
	Indent:                  " ",
	MaxDepth:                10,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

func renderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "<nil>"
	case error:
		return val.Error()
	case fmt.Stringer:
		return val.String()
	default:
		var b bytes.Buffer
		dumper.Fdump(&b, val)
		return string(bytes.TrimSpace(b.Bytes()))
	}
}

// classifyArgs determines the kind of each argument, pre-renders the ones
// with no binary representation, and returns the encoded payload size.
// kinds must have len(args) entries; rendered is allocated only when needed.
func classifyArgs(args []any, kinds []argKind) (rendered []string, size int) {
	for i, arg := range args {
		var k argKind
		var n int
		switch val := arg.(type) {
		case bool:
			k = kindBool
		case int:
			k = kindInt
		case int8:
			k = kindInt8
		case int16:
			k = kindInt16
		case int32:
			k = kindInt32
		case int64:
			k = kindInt64
		case uint:
			k = kindUint
		case uint8:
			k = kindUint8
		case uint16:
			k = kindUint16
		case uint32:
			k = kindUint32
		case uint64:
			k = kindUint64
		case float32:
			k = kindFloat32
		case float64:
			k = kindFloat64
		case time.Duration:
			k = kindDuration
		case time.Time:
			k = kindTime
		case string:
			k = kindString
			n = len(val)
		case []byte:
			k = kindBytes
			n = len(val)
		default:
			k = kindRendered
			if rendered == nil {
				rendered = make([]string, len(args))
			}
			rendered[i] = renderValue(arg)
			n = len(rendered[i])
		}
		kinds[i] = k
		if k < kindString {
			w := kindWidth[k]
			size = alignUp(size, w) + w
		} else {
			size += lengthPrefixSize + n + 1
		}
	}
	return rendered, size
}

// signatureHash is an FNV-1a over the kind sequence. Together with the call
// site program counter it keys the metadata registry, so one call site that
// is reached with different argument types gets one metadata record per
// distinct type sequence.
func signatureHash(kinds []argKind) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	for _, k := range kinds {
		h ^= uint64(k)
		h *= prime64
	}
	return h
}

// encodeArgs writes args into buf following the layout classifyArgs sized.
// buf must be exactly the size classifyArgs returned.
func encodeArgs(buf []byte, args []any, kinds []argKind, rendered []string) {
	off := 0
	putFixed := func(k argKind, u uint64) {
		w := kindWidth[k]
		off = alignUp(off, w)
		switch w {
		case 1:
			buf[off] = byte(u)
		case 2:
			binary.LittleEndian.PutUint16(buf[off:], uint16(u))
		case 4:
			binary.LittleEndian.PutUint32(buf[off:], uint32(u))
		case 8:
			binary.LittleEndian.PutUint64(buf[off:], u)
		}
		off += w
	}
	putText := func(s string) {
		binary.LittleEndian.PutUint32(buf[off:], uint32(len(s)))
		off += lengthPrefixSize
		off += copy(buf[off:], s)
		buf[off] = 0
		off++
	}
	for i, arg := range args {
		switch kinds[i] {
		case kindBool:
			var u uint64
			if arg.(bool) {
				u = 1
			}
			putFixed(kindBool, u)
		case kindInt:
			putFixed(kindInt, uint64(int64(arg.(int))))
		case kindInt8:
			putFixed(kindInt8, uint64(arg.(int8)))
		case kindInt16:
			putFixed(kindInt16, uint64(arg.(int16)))
		case kindInt32:
			putFixed(kindInt32, uint64(arg.(int32)))
		case kindInt64:
			putFixed(kindInt64, uint64(arg.(int64)))
		case kindUint:
			putFixed(kindUint, uint64(arg.(uint)))
		case kindUint8:
			putFixed(kindUint8, uint64(arg.(uint8)))
		case kindUint16:
			putFixed(kindUint16, uint64(arg.(uint16)))
		case kindUint32:
			putFixed(kindUint32, uint64(arg.(uint32)))
		case kindUint64:
			putFixed(kindUint64, arg.(uint64))
		case kindFloat32:
			putFixed(kindFloat32, uint64(math.Float32bits(arg.(float32))))
		case kindFloat64:
			putFixed(kindFloat64, math.Float64bits(arg.(float64)))
		case kindDuration:
			putFixed(kindDuration, uint64(arg.(time.Duration)))
		case kindTime:
			putFixed(kindTime, uint64(arg.(time.Time).UnixNano()))
		case kindString:
			putText(arg.(string))
		case kindBytes:
			b := arg.([]byte)
			binary.LittleEndian.PutUint32(buf[off:], uint32(len(b)))
			off += lengthPrefixSize
			off += copy(buf[off:], b)
			buf[off] = 0
			off++
		case kindRendered:
			putText(rendered[i])
		}
	}
}

// putRecordHeader writes the fixed record header: metadata id, logger id,
// engine-relative timestamp.
func putRecordHeader(buf []byte, metaID, loggerID uint32, ts int64) {
	binary.LittleEndian.PutUint32(buf[0:], metaID)
	binary.LittleEndian.PutUint32(buf[4:], loggerID)
	binary.LittleEndian.PutUint64(buf[8:], uint64(ts))
}

func readRecordHeader(buf []byte) (metaID, loggerID uint32, ts int64) {
	metaID = binary.LittleEndian.Uint32(buf[0:])
	loggerID = binary.LittleEndian.Uint32(buf[4:])
	ts = int64(binary.LittleEndian.Uint64(buf[8:]))
	return metaID, loggerID, ts
}

// decodeArgs walks a payload by kind sequence and reconstructs the argument
// values for formatting. []byte values alias the payload, so the caller must
// finish formatting before committing the queue read.
func decodeArgs(payload []byte, kinds []argKind) ([]any, error) {
	vals := make([]any, len(kinds))
	off := 0
	getFixed := func(k argKind) (uint64, error) {
		w := kindWidth[k]
		off = alignUp(off, w)
		if off+w > len(payload) {
			return 0, fmtErrorf("argument payload truncated at offset %d", off)
		}
		var u uint64
		switch w {
		case 1:
			u = uint64(payload[off])
		case 2:
			u = uint64(binary.LittleEndian.Uint16(payload[off:]))
		case 4:
			u = uint64(binary.LittleEndian.Uint32(payload[off:]))
		case 8:
			u = binary.LittleEndian.Uint64(payload[off:])
		}
		off += w
		return u, nil
	}
	getText := func() ([]byte, error) {
		if off+lengthPrefixSize > len(payload) {
			return nil, fmtErrorf("argument payload truncated at offset %d", off)
		}
		n := int(binary.LittleEndian.Uint32(payload[off:]))
		off += lengthPrefixSize
		if off+n+1 > len(payload) {
			return nil, fmtErrorf("text argument of %d bytes exceeds payload", n)
		}
		b := payload[off : off+n]
		off += n + 1
		return b, nil
	}
	for i, k := range kinds {
		switch k {
		case kindBool:
			u, err := getFixed(k)
			if err != nil {
				return nil, err
			}
			vals[i] = u != 0
		case kindInt:
			u, err := getFixed(k)
			if err != nil {
				return nil, err
			}
			vals[i] = int(int64(u))
		case kindInt8:
			u, err := getFixed(k)
			if err != nil {
				return nil, err
			}
			vals[i] = int8(u)
		case kindInt16:
			u, err := getFixed(k)
			if err != nil {
				return nil, err
			}
			vals[i] = int16(u)
		case kindInt32:
			u, err := getFixed(k)
			if err != nil {
				return nil, err
			}
			vals[i] = int32(u)
		case kindInt64:
			u, err := getFixed(k)
			if err != nil {
				return nil, err
			}
			vals[i] = int64(u)
		case kindUint:
			u, err := getFixed(k)
			if err != nil {
				return nil, err
			}
			vals[i] = uint(u)
		case kindUint8:
			u, err := getFixed(k)
			if err != nil {
				return nil, err
			}
			vals[i] = uint8(u)
		case kindUint16:
			u, err := getFixed(k)
			if err != nil {
				return nil, err
			}
			vals[i] = uint16(u)
		case kindUint32:
			u, err := getFixed(k)
			if err != nil {
				return nil, err
			}
			vals[i] = uint32(u)
		case kindUint64:
			u, err := getFixed(k)
			if err != nil {
				return nil, err
			}
			vals[i] = u
		case kindFloat32:
			u, err := getFixed(k)
			if err != nil {
				return nil, err
			}
			vals[i] = math.Float32frombits(uint32(u))
		case kindFloat64:
			u, err := getFixed(k)
			if err != nil {
				return nil, err
			}
			vals[i] = math.Float64frombits(u)
		case kindDuration:
			u, err := getFixed(k)
			if err != nil {
				return nil, err
			}
			vals[i] = time.Duration(u)
		case kindTime:
			u, err := getFixed(k)
			if err != nil {
				return nil, err
			}
			vals[i] = time.Unix(0, int64(u))
		case kindString, kindRendered:
			b, err := getText()
			if err != nil {
				return nil, err
			}
			vals[i] = string(b)
		case kindBytes:
			b, err := getText()
			if err != nil {
				return nil, err
			}
			vals[i] = b
		default:
			return nil, fmtErrorf("unknown argument kind %d", k)
		}
	}
	return vals, nil
}
