package binary

import (
	"io"
	"math"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/exp/constraints"

	"github.com/lk2023060901/bufferio-go/pkg/buffer/mem"
	"github.com/lk2023060901/bufferio-go/pkg/log"
	"github.com/lk2023060901/bufferio-go/pkg/metrics"
	"github.com/lk2023060901/bufferio-go/pkg/util/merr"
)

// max7BitBytes 是 7 位变长编码的 int32 最多占用的字节数。
const max7BitBytes = 5

// Reader 从可定位的字节流中解码 Writer 写入的数据。
//
// 每次读取前先比较剩余字节数，数据不足时返回 ErrIoUnexpectEOF 且游标不动；
// 变长类型读取失败时游标恢复到调用开始处。
type Reader struct {
	cursor

	r       io.ReadSeeker
	scratch [8]byte
}

// NewReader 创建一个从 source 读取的 Reader。
func NewReader(source io.ReadSeeker, opts ...Option) *Reader {
	r := &Reader{r: source}
	r.init(source, metrics.DirectionRead, opts)
	return r
}

// NewBytesReader 创建一个直接读取 data 的 Reader，不复制 data。
func NewBytesReader(data []byte, opts ...Option) *Reader {
	return NewReader(mem.NewFrom(data), opts...)
}

// Remaining 返回游标之后的剩余字节数，游标位于末尾之后时为 0。
func (r *Reader) Remaining() (int64, error) {
	pos, err := r.Position()
	if err != nil {
		return 0, err
	}
	length, err := r.Len()
	if err != nil {
		return 0, err
	}
	if pos >= length {
		return 0, nil
	}
	return length - pos, nil
}

func (r *Reader) ensure(op string, need int64) error {
	rem, err := r.Remaining()
	if err != nil {
		return err
	}
	if rem < need {
		return r.fail(op, merr.WrapErrIoUnexpectEOF(op, need, rem))
	}
	return nil
}

func (r *Reader) readFull(op string, p []byte) error {
	if err := r.ensure(op, int64(len(p))); err != nil {
		return err
	}
	return r.fill(op, p)
}

// fill 读满 p，调用方须已完成剩余长度校验。
func (r *Reader) fill(op string, p []byte) error {
	n, err := io.ReadFull(r.r, p)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return r.fail(op, merr.WrapErrIoUnexpectEOF(op, int64(len(p)), int64(n)))
		}
		return r.fail(op, merr.WrapErrIoFailed(op, err))
	}
	r.record(op, n)
	return nil
}

// readN 读取恰好 n 个字节到新分配的切片中，先校验剩余长度再分配。
func (r *Reader) readN(op string, n int64) ([]byte, error) {
	if err := r.ensure(op, n); err != nil {
		return nil, err
	}
	p := make([]byte, n)
	if err := r.fill(op, p); err != nil {
		return nil, err
	}
	return p, nil
}

// readLength 读取 u32 长度前缀并按上限校验。
func (r *Reader) readLength(op string) (uint32, error) {
	n, err := readUint[uint32](r, op, 4)
	if err != nil {
		return 0, err
	}
	if n > r.opts.maxLength {
		r.Logger().RatedWarn(1, "length prefix exceeds limit",
			log.FieldOp(op),
			zap.Uint32("length", n),
			zap.Uint32("limit", r.opts.maxLength))
		return 0, r.fail(op, merr.WrapErrLengthOverflow(op, uint64(n), uint64(r.opts.maxLength)))
	}
	return n, nil
}

func readUint[T constraints.Unsigned](r *Reader, op string, width int) (T, error) {
	p := r.scratch[:width]
	if err := r.readFull(op, p); err != nil {
		return 0, err
	}
	return getUint[T](p), nil
}

func (r *Reader) ReadU8() (uint8, error)   { return readUint[uint8](r, "read_u8", 1) }
func (r *Reader) ReadU16() (uint16, error) { return readUint[uint16](r, "read_u16", 2) }
func (r *Reader) ReadU32() (uint32, error) { return readUint[uint32](r, "read_u32", 4) }
func (r *Reader) ReadU64() (uint64, error) { return readUint[uint64](r, "read_u64", 8) }

func (r *Reader) ReadI8() (int8, error) {
	v, err := readUint[uint8](r, "read_i8", 1)
	return int8(v), err
}

func (r *Reader) ReadI16() (int16, error) {
	v, err := readUint[uint16](r, "read_i16", 2)
	return int16(v), err
}

func (r *Reader) ReadI32() (int32, error) {
	v, err := readUint[uint32](r, "read_i32", 4)
	return int32(v), err
}

func (r *Reader) ReadI64() (int64, error) {
	v, err := readUint[uint64](r, "read_i64", 8)
	return int64(v), err
}

func (r *Reader) ReadF32() (float32, error) {
	v, err := readUint[uint32](r, "read_f32", 4)
	return math.Float32frombits(v), err
}

func (r *Reader) ReadF64() (float64, error) {
	v, err := readUint[uint64](r, "read_f64", 8)
	return math.Float64frombits(v), err
}

// ReadBool 读取一个字节，非 0 即为 true。
func (r *Reader) ReadBool() (bool, error) {
	v, err := readUint[uint8](r, "read_bool", 1)
	return v != 0, err
}

// ReadString 读取 u32 长度前缀及对应的 UTF-8 字节。
func (r *Reader) ReadString() (string, error) {
	const op = "read_string"
	start, err := r.Position()
	if err != nil {
		return "", err
	}
	n, err := r.readLength(op)
	if err != nil {
		return "", r.rewind(start, err)
	}
	p, err := r.readN(op, int64(n))
	if err != nil {
		return "", r.rewind(start, err)
	}
	if !utf8.Valid(p) {
		r.Logger().RatedWarn(1, "invalid utf-8 in string payload",
			log.FieldOp(op),
			log.FieldPosition(start),
			zap.Int("length", len(p)))
		return "", r.rewind(start, r.fail(op, merr.WrapErrEncodingInvalid(op, len(p))))
	}
	return string(p), nil
}

// ReadBlob 读取 u32 长度前缀及对应的原始字节。
func (r *Reader) ReadBlob() ([]byte, error) {
	const op = "read_blob"
	start, err := r.Position()
	if err != nil {
		return nil, err
	}
	n, err := r.readLength(op)
	if err != nil {
		return nil, r.rewind(start, err)
	}
	p, err := r.readN(op, int64(n))
	if err != nil {
		return nil, r.rewind(start, err)
	}
	return p, nil
}

// ReadBytes 读取恰好 n 个字节。
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	const op = "read_bytes"
	if n < 0 {
		return nil, r.fail(op, merr.WrapErrParameterInvalidMsg("negative length %d", n))
	}
	return r.readN(op, int64(n))
}

// ReadBytesAt 读取绝对偏移 off 处的 n 个字节，不移动游标。
func (r *Reader) ReadBytesAt(off int64, n int) ([]byte, error) {
	const op = "read_bytes_at"
	if n < 0 {
		return nil, r.fail(op, merr.WrapErrParameterInvalidMsg("negative length %d", n))
	}
	if off < 0 {
		return nil, r.fail(op, merr.WrapErrSeekOutOfRange(OriginStart.String(), off))
	}
	length, err := r.Len()
	if err != nil {
		return nil, err
	}
	if off > length || int64(n) > length-off {
		return nil, r.fail(op, merr.WrapErrIoUnexpectEOF(op, int64(n), max(length-off, 0)))
	}

	p := make([]byte, n)
	if ra, ok := r.r.(io.ReaderAt); ok {
		m, err := ra.ReadAt(p, off)
		if m == n {
			r.record(op, m)
			return p, nil
		}
		if err == nil || errors.Is(err, io.EOF) {
			return nil, r.fail(op, merr.WrapErrIoUnexpectEOF(op, int64(n), int64(m)))
		}
		return nil, r.fail(op, merr.WrapErrIoFailed(op, err))
	}

	start, err := r.Position()
	if err != nil {
		return nil, err
	}
	if _, err := r.s.Seek(off, io.SeekStart); err != nil {
		return nil, r.fail(op, merr.WrapErrSeekOutOfRange(OriginStart.String(), off, err))
	}
	err = r.readFull(op, p)
	if rerr := r.rewind(start, nil); rerr != nil {
		return nil, merr.Combine(err, rerr)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Read7BitInt 读取 Write7BitInt 写入的变长整数。
// 超过 5 个字节仍未结束时返回 ErrFormatInvalid，游标恢复到调用开始处。
func (r *Reader) Read7BitInt() (int32, error) {
	const op = "read_7bit_int"
	start, err := r.Position()
	if err != nil {
		return 0, err
	}
	var v uint32
	for i := 0; i < max7BitBytes; i++ {
		b, err := readUint[uint8](r, op, 1)
		if err != nil {
			return 0, r.rewind(start, err)
		}
		v |= uint32(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return int32(v), nil
		}
	}
	return 0, r.rewind(start, r.fail(op, merr.WrapErrFormatInvalid(op, "7-bit encoded int32 is longer than 5 bytes")))
}

// Read7BitString 读取 7 位变长编码长度前缀的字符串。
func (r *Reader) Read7BitString() (string, error) {
	const op = "read_7bit_string"
	start, err := r.Position()
	if err != nil {
		return "", err
	}
	n, err := r.Read7BitInt()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", r.rewind(start, r.fail(op, merr.WrapErrFormatInvalid(op, "negative string length")))
	}
	if uint32(n) > r.opts.maxLength {
		return "", r.rewind(start, r.fail(op, merr.WrapErrLengthOverflow(op, uint64(n), uint64(r.opts.maxLength))))
	}
	p, err := r.readN(op, int64(n))
	if err != nil {
		return "", r.rewind(start, err)
	}
	if !utf8.Valid(p) {
		r.Logger().RatedWarn(1, "invalid utf-8 in string payload",
			log.FieldOp(op),
			log.FieldPosition(start),
			zap.Int("length", len(p)))
		return "", r.rewind(start, r.fail(op, merr.WrapErrEncodingInvalid(op, len(p))))
	}
	return string(p), nil
}
