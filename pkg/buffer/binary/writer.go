package binary

import (
	"fmt"
	"io"
	"math"

	"golang.org/x/exp/constraints"

	"github.com/lk2023060901/bufferio-go/pkg/buffer/mem"
	"github.com/lk2023060901/bufferio-go/pkg/metrics"
	"github.com/lk2023060901/bufferio-go/pkg/util/merr"
)

// byteSource 由能暴露全部内容的内存后端实现。
type byteSource interface {
	Bytes() []byte
}

// Writer 将基本类型编码写入可定位的字节流。
//
// 写入发生在游标处并推进游标；游标不在末尾时会覆盖已有字节。
// Writer 不关闭、不截断底层流。
type Writer struct {
	cursor

	w       io.WriteSeeker
	scratch [8]byte
}

// NewWriter 创建一个写入 sink 的 Writer。
func NewWriter(sink io.WriteSeeker, opts ...Option) *Writer {
	w := &Writer{w: sink}
	w.init(sink, metrics.DirectionWrite, opts)
	return w
}

// NewMemoryWriter 创建一个写入新内存流的 Writer，可通过 ToVec 取回结果。
func NewMemoryWriter(opts ...Option) *Writer {
	return NewWriter(mem.New(0), opts...)
}

func (w *Writer) write(op string, p []byte) error {
	n, err := w.w.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return w.fail(op, merr.WrapErrIoFailed(op, err))
	}
	w.record(op, n)
	return nil
}

func (w *Writer) writeString(op string, s string) error {
	n, err := io.WriteString(w.w, s)
	if err == nil && n < len(s) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return w.fail(op, merr.WrapErrIoFailed(op, err))
	}
	w.record(op, n)
	return nil
}

func writeUint[T constraints.Unsigned](w *Writer, op string, v T, width int) error {
	p := w.scratch[:width]
	putUint(p, v)
	return w.write(op, p)
}

func (w *Writer) WriteU8(v uint8) error   { return writeUint(w, "write_u8", v, 1) }
func (w *Writer) WriteU16(v uint16) error { return writeUint(w, "write_u16", v, 2) }
func (w *Writer) WriteU32(v uint32) error { return writeUint(w, "write_u32", v, 4) }
func (w *Writer) WriteU64(v uint64) error { return writeUint(w, "write_u64", v, 8) }

func (w *Writer) WriteI8(v int8) error   { return writeUint(w, "write_i8", uint8(v), 1) }
func (w *Writer) WriteI16(v int16) error { return writeUint(w, "write_i16", uint16(v), 2) }
func (w *Writer) WriteI32(v int32) error { return writeUint(w, "write_i32", uint32(v), 4) }
func (w *Writer) WriteI64(v int64) error { return writeUint(w, "write_i64", uint64(v), 8) }

// WriteF32 写入 IEEE-754 单精度位模式，NaN 载荷与 -0 原样保留。
func (w *Writer) WriteF32(v float32) error {
	return writeUint(w, "write_f32", math.Float32bits(v), 4)
}

// WriteF64 写入 IEEE-754 双精度位模式。
func (w *Writer) WriteF64(v float64) error {
	return writeUint(w, "write_f64", math.Float64bits(v), 8)
}

// WriteBool 写入一个字节：true 为 1，false 为 0。
func (w *Writer) WriteBool(v bool) error {
	var b uint8
	if v {
		b = 1
	}
	return writeUint(w, "write_bool", b, 1)
}

// WriteString 写入 u32 字节长度前缀和 s 的 UTF-8 字节。
// 长度超出上限时返回 ErrLengthOverflow，且不写入任何字节。
func (w *Writer) WriteString(s string) error {
	const op = "write_string"
	if err := w.checkLength(op, len(s)); err != nil {
		return err
	}
	if err := writeUint(w, op, uint32(len(s)), 4); err != nil {
		return err
	}
	if len(s) == 0 {
		return nil
	}
	return w.writeString(op, s)
}

// WriteBlob 写入 u32 字节长度前缀和 p，不做编码校验。
func (w *Writer) WriteBlob(p []byte) error {
	const op = "write_blob"
	if err := w.checkLength(op, len(p)); err != nil {
		return err
	}
	if err := writeUint(w, op, uint32(len(p)), 4); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	return w.write(op, p)
}

// WriteBytes 原样写入 p，不带长度前缀。
func (w *Writer) WriteBytes(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	return w.write("write_bytes", p)
}

// Write7BitInt 以 7 位分组变长编码写入 v 的 32 位补码，低位组在前，共 1~5 字节。
func (w *Writer) Write7BitInt(v int32) error {
	u := uint32(v)
	p := w.scratch[:0]
	for u >= 0x80 {
		p = append(p, byte(u)|0x80)
		u >>= 7
	}
	p = append(p, byte(u))
	return w.write("write_7bit_int", p)
}

// Write7BitString 写入 7 位变长编码的字节长度和 s 的 UTF-8 字节。
func (w *Writer) Write7BitString(s string) error {
	const op = "write_7bit_string"
	if err := w.checkLength(op, len(s)); err != nil {
		return err
	}
	if len(s) > math.MaxInt32 {
		return w.fail(op, merr.WrapErrLengthOverflow(op, uint64(len(s)), uint64(math.MaxInt32)))
	}
	if err := w.Write7BitInt(int32(len(s))); err != nil {
		return err
	}
	if len(s) == 0 {
		return nil
	}
	return w.writeString(op, s)
}

// ToVec 返回从 0 到流末尾的全部字节的副本，与游标位置无关。
// 仅当底层流能暴露其内容（如 mem.Buffer）时可用，否则返回 ErrOperationNotSupported。
func (w *Writer) ToVec() ([]byte, error) {
	src, ok := w.w.(byteSource)
	if !ok {
		return nil, w.fail("to_vec", merr.WrapErrOperationNotSupported("to_vec",
			fmt.Sprintf("%T does not expose its content", w.w)))
	}
	b := src.Bytes()
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}
