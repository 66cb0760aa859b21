package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/bufferio-go/pkg/buffer/binary"
	"github.com/lk2023060901/bufferio-go/pkg/util/merr"
)

func TestParse(t *testing.T) {
	s, err := Parse("u32  u32 string\tvec<i64> vec<vec<u8>> blob BOOL")
	require.NoError(t, err)
	require.Len(t, s, 7)
	assert.Equal(t, KindU32, s[0].Kind)
	assert.Equal(t, KindVec, s[3].Kind)
	assert.Equal(t, KindI64, s[3].Elem.Kind)
	assert.Equal(t, KindU8, s[4].Elem.Elem.Kind)
	assert.Equal(t, KindBool, s[6].Kind)
	assert.Equal(t, "u32 u32 string vec<i64> vec<vec<u8>> blob bool", s.String())
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("")
	assert.ErrorIs(t, err, merr.ErrParameterMissing)

	_, err = Parse("u32 u128")
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)

	_, err = Parse("vec<vec<vec<u8>>>")
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)

	_, err = Parse("vec<i32")
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)
}

func TestEncodeDecode(t *testing.T) {
	s, err := Parse("u32 u32 string")
	require.NoError(t, err)

	w := binary.NewMemoryWriter()
	require.NoError(t, s.Encode(w, []string{"9001", "9002", "Hello World!"}))
	data, err := w.ToVec()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x29, 0x23, 0, 0, 0x2A, 0x23, 0, 0, 12, 0, 0, 0}, data[:12])

	values, err := s.Decode(binary.NewBytesReader(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"9001", "9002", "Hello World!"}, values)
}

func TestEncodeDecodeAllKinds(t *testing.T) {
	s, err := Parse("u8 u16 u64 i8 i16 i32 i64 f32 f64 bool blob vec<string> vec<vec<i16>> vec<u8>")
	require.NoError(t, err)
	in := []string{
		"255", "65535", "18446744073709551615",
		"-128", "-32768", "-2147483648", "-9223372036854775808",
		"1.5", "-0.25", "true", "deadbeef",
		"a,b,c", "1,2;;-3", "",
	}

	w := binary.NewMemoryWriter()
	require.NoError(t, s.Encode(w, in))
	data, err := w.ToVec()
	require.NoError(t, err)

	out, err := s.Decode(binary.NewBytesReader(data))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestEncodeErrors(t *testing.T) {
	s, err := Parse("u8 i32")
	require.NoError(t, err)
	w := binary.NewMemoryWriter()

	err = s.Encode(w, []string{"1"})
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)

	err = s.Encode(w, []string{"256", "0"})
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)
	assert.Contains(t, err.Error(), "out of range")

	err = s.Encode(w, []string{"1", "abc"})
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)
}

func TestDecodeTruncated(t *testing.T) {
	s, err := Parse("u32 string")
	require.NoError(t, err)
	_, err = s.Decode(binary.NewBytesReader([]byte{1, 0, 0, 0, 5, 0, 0, 0, 'a'}))
	assert.ErrorIs(t, err, merr.ErrIoUnexpectEOF)
	assert.Contains(t, err.Error(), "field 1 (string)")
}

func TestVecEscaping(t *testing.T) {
	s, err := Parse("vec<string> vec<vec<string>> vec<string>")
	require.NoError(t, err)
	in := []string{`a\,b,c\;d,\\`, `x\\\,y\,z;w`, `,`}

	w := binary.NewMemoryWriter()
	require.NoError(t, s.Encode(w, in))
	data, err := w.ToVec()
	require.NoError(t, err)

	r := binary.NewBytesReader(data)
	flat, err := binary.ReadVec(r, binary.String.Decode)
	require.NoError(t, err)
	assert.Equal(t, []string{"a,b", "c;d", `\`}, flat)
	nested, err := binary.VecOf(binary.VecOf(binary.String)).Decode(r)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"x,y", "z"}, {"w"}}, nested)
	pair, err := binary.ReadVec(r, binary.String.Decode)
	require.NoError(t, err)
	assert.Equal(t, []string{"", ""}, pair)

	out, err := s.Decode(binary.NewBytesReader(data))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	vs, err := Parse("vec<string>")
	require.NoError(t, err)
	for _, bad := range []string{`a\b`, `trailing\`} {
		err = vs.Encode(binary.NewMemoryWriter(), []string{bad})
		assert.ErrorIs(t, err, merr.ErrParameterInvalid, bad)
	}
}
