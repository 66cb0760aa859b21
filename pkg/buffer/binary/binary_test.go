package binary

import (
	"bytes"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/bufferio-go/pkg/buffer/mem"
	"github.com/lk2023060901/bufferio-go/pkg/log"
	"github.com/lk2023060901/bufferio-go/pkg/util/merr"
)

type BufferSuite struct {
	suite.Suite
}

func TestBuffer(t *testing.T) {
	suite.Run(t, new(BufferSuite))
}

func (s *BufferSuite) TestHelloWorldLayout() {
	w := NewMemoryWriter()
	s.Require().NoError(w.WriteU32(9001))
	s.Require().NoError(w.WriteU32(9002))
	s.Require().NoError(w.WriteString("Hello World!"))

	data, err := w.ToVec()
	s.Require().NoError(err)
	expected := append([]byte{
		0x29, 0x23, 0x00, 0x00,
		0x2A, 0x23, 0x00, 0x00,
		0x0C, 0x00, 0x00, 0x00,
	}, []byte("Hello World!")...)
	s.Equal(expected, data)

	r := NewBytesReader(data)
	a, err := r.ReadU32()
	s.Require().NoError(err)
	b, err := r.ReadU32()
	s.Require().NoError(err)
	str, err := r.ReadString()
	s.Require().NoError(err)
	s.Equal(uint32(9001), a)
	s.Equal(uint32(9002), b)
	s.Equal("Hello World!", str)

	rem, err := r.Remaining()
	s.NoError(err)
	s.Zero(rem)
}

func (s *BufferSuite) TestSeekOverwrite() {
	w := NewMemoryWriter()
	s.Require().NoError(w.WriteU32(9001))
	s.Require().NoError(w.WriteU32(9002))
	s.Require().NoError(w.WriteString("Hello World!"))

	pos, err := w.Seek(Start(0))
	s.Require().NoError(err)
	s.Equal(int64(0), pos)
	s.Require().NoError(w.WriteU32(9003))

	pos, err = w.Position()
	s.NoError(err)
	s.Equal(int64(4), pos)

	data, err := w.ToVec()
	s.Require().NoError(err)
	s.Len(data, 24)

	r := NewBytesReader(data)
	v, err := r.ReadU32()
	s.NoError(err)
	s.Equal(uint32(9003), v)
	v, err = r.ReadU32()
	s.NoError(err)
	s.Equal(uint32(9002), v)
	str, err := r.ReadString()
	s.NoError(err)
	s.Equal("Hello World!", str)
}

func (s *BufferSuite) TestPrimitiveRoundTrip() {
	w := NewMemoryWriter()
	s.Require().NoError(w.WriteU8(0))
	s.Require().NoError(w.WriteU8(math.MaxUint8))
	s.Require().NoError(w.WriteU16(math.MaxUint16))
	s.Require().NoError(w.WriteU32(math.MaxUint32))
	s.Require().NoError(w.WriteU64(math.MaxUint64))
	s.Require().NoError(w.WriteI8(math.MinInt8))
	s.Require().NoError(w.WriteI16(math.MinInt16))
	s.Require().NoError(w.WriteI32(math.MinInt32))
	s.Require().NoError(w.WriteI64(math.MinInt64))
	s.Require().NoError(w.WriteI64(math.MaxInt64))
	s.Require().NoError(w.WriteF32(float32(math.Inf(-1))))
	s.Require().NoError(w.WriteF64(math.NaN()))
	s.Require().NoError(w.WriteF64(math.Copysign(0, -1)))
	s.Require().NoError(w.WriteBool(true))
	s.Require().NoError(w.WriteBool(false))

	data, err := w.ToVec()
	s.Require().NoError(err)
	s.Len(data, 1+1+2+4+8+1+2+4+8+8+4+8+8+1+1)

	r := NewBytesReader(data)
	u8, _ := r.ReadU8()
	s.Equal(uint8(0), u8)
	u8, _ = r.ReadU8()
	s.Equal(uint8(math.MaxUint8), u8)
	u16, _ := r.ReadU16()
	s.Equal(uint16(math.MaxUint16), u16)
	u32, _ := r.ReadU32()
	s.Equal(uint32(math.MaxUint32), u32)
	u64, _ := r.ReadU64()
	s.Equal(uint64(math.MaxUint64), u64)
	i8, _ := r.ReadI8()
	s.Equal(int8(math.MinInt8), i8)
	i16, _ := r.ReadI16()
	s.Equal(int16(math.MinInt16), i16)
	i32, _ := r.ReadI32()
	s.Equal(int32(math.MinInt32), i32)
	i64, _ := r.ReadI64()
	s.Equal(int64(math.MinInt64), i64)
	i64, _ = r.ReadI64()
	s.Equal(int64(math.MaxInt64), i64)
	f32, _ := r.ReadF32()
	s.True(math.IsInf(float64(f32), -1))
	f64, _ := r.ReadF64()
	s.True(math.IsNaN(f64))
	f64, err = r.ReadF64()
	s.NoError(err)
	s.True(math.Signbit(f64))
	bt, _ := r.ReadBool()
	s.True(bt)
	bt, err = r.ReadBool()
	s.NoError(err)
	s.False(bt)
}

func (s *BufferSuite) TestLittleEndian() {
	w := NewMemoryWriter()
	s.Require().NoError(w.WriteU16(0x0102))
	s.Require().NoError(w.WriteI32(-2))
	s.Require().NoError(w.WriteF32(1))
	data, err := w.ToVec()
	s.Require().NoError(err)
	s.Equal([]byte{0x02, 0x01, 0xFE, 0xFF, 0xFF, 0xFF, 0x00, 0x00, 0x80, 0x3F}, data)
}

func (s *BufferSuite) TestNonZeroByteReadsTrue() {
	r := NewBytesReader([]byte{0x7F})
	v, err := r.ReadBool()
	s.NoError(err)
	s.True(v)
}

func (s *BufferSuite) TestStrings() {
	w := NewMemoryWriter()
	s.Require().NoError(w.WriteString(""))
	s.Require().NoError(w.WriteString("héllo, 世界"))

	data, err := w.ToVec()
	s.Require().NoError(err)
	s.Equal([]byte{0, 0, 0, 0}, data[:4])

	r := NewBytesReader(data)
	str, err := r.ReadString()
	s.NoError(err)
	s.Equal("", str)
	str, err = r.ReadString()
	s.NoError(err)
	s.Equal("héllo, 世界", str)
}

func (s *BufferSuite) TestReadStringInvalidUTF8() {
	r := NewBytesReader([]byte{2, 0, 0, 0, 0xC3, 0x28})
	_, err := r.ReadString()
	s.ErrorIs(err, merr.ErrEncodingInvalid)

	pos, err := r.Position()
	s.NoError(err)
	s.Zero(pos)
}

func (s *BufferSuite) TestReadStringTruncated() {
	r := NewBytesReader([]byte{10, 0, 0, 0, 'a', 'b'})
	_, err := r.ReadString()
	s.ErrorIs(err, merr.ErrIoUnexpectEOF)

	pos, err := r.Position()
	s.NoError(err)
	s.Zero(pos)
}

func (s *BufferSuite) TestEndOfStream() {
	r := NewBytesReader([]byte{1, 2, 3})
	_, err := r.ReadU32()
	s.ErrorIs(err, merr.ErrIoUnexpectEOF)
	s.Equal(int32(1002), merr.Code(err))

	pos, err := r.Position()
	s.NoError(err)
	s.Zero(pos)

	v, err := r.ReadU16()
	s.NoError(err)
	s.Equal(uint16(0x0201), v)

	empty := NewBytesReader(nil)
	_, err = empty.ReadU8()
	s.ErrorIs(err, merr.ErrIoUnexpectEOF)
	_, err = empty.ReadString()
	s.ErrorIs(err, merr.ErrIoUnexpectEOF)
}

func (s *BufferSuite) TestLengthOverflow() {
	w := NewMemoryWriter(WithMaxLength(4))
	err := w.WriteString("hello")
	s.ErrorIs(err, merr.ErrLengthOverflow)
	err = WriteVec(w, []uint8{1, 2, 3, 4, 5}, U8.Encode)
	s.ErrorIs(err, merr.ErrLengthOverflow)
	err = w.WriteBlob(make([]byte, 5))
	s.ErrorIs(err, merr.ErrLengthOverflow)

	n, err := w.Len()
	s.NoError(err)
	s.Zero(n)

	s.Require().NoError(w.WriteString("four"))
	data, err := w.ToVec()
	s.Require().NoError(err)

	r := NewBytesReader(data, WithMaxLength(3))
	_, err = r.ReadString()
	s.ErrorIs(err, merr.ErrLengthOverflow)
	pos, _ := r.Position()
	s.Zero(pos)
}

func (s *BufferSuite) TestSeek() {
	w := NewMemoryWriter()
	s.Require().NoError(w.WriteBytes([]byte("0123456789")))

	pos, err := w.Seek(End(-2))
	s.NoError(err)
	s.Equal(int64(8), pos)

	pos, err = w.Seek(Current(-3))
	s.NoError(err)
	s.Equal(int64(5), pos)

	_, err = w.Seek(Current(-6))
	s.ErrorIs(err, merr.ErrSeekOutOfRange)
	pos, _ = w.Position()
	s.Equal(int64(5), pos)

	_, err = w.Seek(Start(-1))
	s.ErrorIs(err, merr.ErrSeekOutOfRange)

	_, err = w.Seek(Current(math.MaxInt64))
	s.ErrorIs(err, merr.ErrSeekOutOfRange)

	_, err = w.Seek(SeekOrigin{Origin: Origin(9)})
	s.ErrorIs(err, merr.ErrParameterInvalid)

	r := NewBytesReader([]byte("abcdef"))
	pos, err = r.Seek(End(0))
	s.NoError(err)
	s.Equal(int64(6), pos)
	_, err = r.ReadU8()
	s.ErrorIs(err, merr.ErrIoUnexpectEOF)

	pos, err = r.Seek(Start(10))
	s.NoError(err)
	s.Equal(int64(10), pos)
	rem, err := r.Remaining()
	s.NoError(err)
	s.Zero(rem)
}

func (s *BufferSuite) TestBytes() {
	r := NewBytesReader([]byte("abcdef"))
	p, err := r.ReadBytes(2)
	s.NoError(err)
	s.Equal([]byte("ab"), p)

	p, err = r.ReadBytesAt(4, 2)
	s.NoError(err)
	s.Equal([]byte("ef"), p)
	pos, _ := r.Position()
	s.Equal(int64(2), pos)

	_, err = r.ReadBytesAt(5, 2)
	s.ErrorIs(err, merr.ErrIoUnexpectEOF)
	_, err = r.ReadBytesAt(-1, 1)
	s.ErrorIs(err, merr.ErrSeekOutOfRange)
	_, err = r.ReadBytes(-1)
	s.ErrorIs(err, merr.ErrParameterInvalid)
	_, err = r.ReadBytes(5)
	s.ErrorIs(err, merr.ErrIoUnexpectEOF)

	w := NewMemoryWriter()
	s.Require().NoError(w.WriteBlob([]byte{0xFF, 0x00}))
	data, _ := w.ToVec()
	blob, err := NewBytesReader(data).ReadBlob()
	s.NoError(err)
	s.Equal([]byte{0xFF, 0x00}, blob)
}

func (s *BufferSuite) Test7BitInt() {
	cases := []struct {
		v    int32
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7F}},
		{128, []byte{0x80, 0x01}},
		{300, []byte{0xAC, 0x02}},
		{math.MaxInt32, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x07}},
		{-1, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F}},
	}
	for _, c := range cases {
		w := NewMemoryWriter()
		s.Require().NoError(w.Write7BitInt(c.v))
		data, _ := w.ToVec()
		s.Equal(c.want, data, "value %d", c.v)

		v, err := NewBytesReader(data).Read7BitInt()
		s.NoError(err)
		s.Equal(c.v, v)
	}

	r := NewBytesReader([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01})
	_, err := r.Read7BitInt()
	s.ErrorIs(err, merr.ErrFormatInvalid)
	pos, _ := r.Position()
	s.Zero(pos)

	r = NewBytesReader([]byte{0x80})
	_, err = r.Read7BitInt()
	s.ErrorIs(err, merr.ErrIoUnexpectEOF)
	pos, _ = r.Position()
	s.Zero(pos)
}

func (s *BufferSuite) Test7BitString() {
	w := NewMemoryWriter()
	s.Require().NoError(w.Write7BitString("Hello"))
	data, _ := w.ToVec()
	s.Equal(append([]byte{5}, "Hello"...), data)

	str, err := NewBytesReader(data).Read7BitString()
	s.NoError(err)
	s.Equal("Hello", str)

	r := NewBytesReader([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F})
	_, err = r.Read7BitString()
	s.ErrorIs(err, merr.ErrFormatInvalid)
	pos, _ := r.Position()
	s.Zero(pos)
}

func (s *BufferSuite) TestFileBacked() {
	path := filepath.Join(s.T().TempDir(), "data.bin")
	f, err := os.Create(path)
	s.Require().NoError(err)
	defer f.Close()

	w := NewWriter(f)
	s.Require().NoError(w.WriteU32(9001))
	s.Require().NoError(w.WriteString("file"))
	n, err := w.Len()
	s.NoError(err)
	s.Equal(int64(12), n)

	_, err = w.ToVec()
	s.ErrorIs(err, merr.ErrOperationNotSupported)

	_, err = f.Seek(0, io.SeekStart)
	s.Require().NoError(err)
	r := NewReader(f)
	_, err = r.Seek(End(-8))
	s.Require().NoError(err)
	str, err := r.ReadString()
	s.NoError(err)
	s.Equal("file", str)

	p, err := r.ReadBytesAt(0, 4)
	s.NoError(err)
	s.Equal([]byte{0x29, 0x23, 0, 0}, p)
}

type shortSink struct {
	*mem.Buffer
}

func (s shortSink) Write(p []byte) (int, error) {
	if len(p) <= 1 {
		return s.Buffer.Write(p)
	}
	return s.Buffer.Write(p[:len(p)-1])
}

type failingSource struct {
	*mem.Buffer
}

func (failingSource) Read([]byte) (int, error) {
	return 0, errors.New("disk on fire")
}

func (s *BufferSuite) TestIoFailure() {
	w := NewWriter(shortSink{mem.New(0)})
	err := w.WriteU32(1)
	s.ErrorIs(err, merr.ErrIoFailed)
	s.Equal(int32(1001), merr.Code(err))

	r := NewReader(failingSource{mem.NewFrom([]byte{1, 2, 3, 4})})
	_, err = r.ReadU32()
	s.ErrorIs(err, merr.ErrIoFailed)
}

func TestSeekOriginString(t *testing.T) {
	assert.Equal(t, "Start+0", Start(0).String())
	assert.Equal(t, "Current-4", Current(-4).String())
	assert.Equal(t, "End+2", End(2).String())
	assert.Equal(t, "Origin(7)", Origin(7).String())
}

func TestWithLogger(t *testing.T) {
	logger := log.With(log.FieldComponent("reader"))
	r := NewBytesReader([]byte{1}, WithLogger(logger))
	require.Same(t, logger, r.Logger())
}

// seekCounter 隐藏 bytes.Reader 的 Size，迫使 Reader 走通用的 Seek 路径。
type seekCounter struct {
	rs    io.ReadSeeker
	seeks int
}

func (c *seekCounter) Read(p []byte) (int, error) { return c.rs.Read(p) }

func (c *seekCounter) Seek(offset int64, whence int) (int64, error) {
	c.seeks++
	return c.rs.Seek(offset, whence)
}

func TestReadStringChecksRemainingOnce(t *testing.T) {
	src := &seekCounter{rs: bytes.NewReader([]byte{2, 0, 0, 0, 'h', 'i'})}
	r := NewReader(src)

	v, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "hi", v)
	// 起始位置 1 次，长度前缀与内容各一次剩余校验（每次 4 次 Seek）。
	assert.Equal(t, 9, src.seeks)
}
