// Package schema 将形如 "u32 string vec<i64>" 的类型列表与文本值互相转换，
// 供命令行工具按顺序写入或读取 buffer 数据。
//
// vec 的元素以 "," 分隔，vec<vec<T>> 的外层以 ";" 分隔。元素文本中的
// "\"、"," 与 ";" 需以 "\" 转义，Decode 输出同样带转义，因此输出可原样作为 Encode 输入。
// 空文本表示空 vec，因此只含一个空元素的 vec 没有文本形式。
package schema

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"golang.org/x/exp/constraints"

	"github.com/lk2023060901/bufferio-go/pkg/buffer/binary"
	"github.com/lk2023060901/bufferio-go/pkg/util/merr"
)

// Kind 表示字段的编码类型。
type Kind int

const (
	KindU8 Kind = iota
	KindU16
	KindU32
	KindU64
	KindI8
	KindI16
	KindI32
	KindI64
	KindF32
	KindF64
	KindBool
	KindString
	KindBlob
	KindVec
)

const (
	vecPrefix = "vec<"
	vecSuffix = ">"

	// 最多支持 vec<vec<T>>，对应文本中 ';' 与 ',' 两级分隔符。
	maxVecDepth = 2
)

var kindNames = map[Kind]string{
	KindU8:     "u8",
	KindU16:    "u16",
	KindU32:    "u32",
	KindU64:    "u64",
	KindI8:     "i8",
	KindI16:    "i16",
	KindI32:    "i32",
	KindI64:    "i64",
	KindF32:    "f32",
	KindF64:    "f64",
	KindBool:   "bool",
	KindString: "string",
	KindBlob:   "blob",
}

var kindByName = lo.Invert(kindNames)

func (k Kind) String() string {
	if k == KindVec {
		return "vec"
	}
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Field 描述一个字段；Kind 为 KindVec 时 Elem 为元素类型。
type Field struct {
	Kind Kind
	Elem *Field
}

func (f Field) String() string {
	if f.Kind == KindVec {
		return vecPrefix + f.Elem.String() + vecSuffix
	}
	return f.Kind.String()
}

// Schema 是按写入顺序排列的字段列表。
type Schema []Field

func (s Schema) String() string {
	return strings.Join(lo.Map(s, func(f Field, _ int) string { return f.String() }), " ")
}

// Parse 解析以空白分隔的类型列表。
func Parse(text string) (Schema, error) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil, merr.WrapErrParameterMissing("schema")
	}
	s := make(Schema, 0, len(tokens))
	for _, tok := range tokens {
		f, err := parseField(tok, 0)
		if err != nil {
			return nil, err
		}
		s = append(s, f)
	}
	return s, nil
}

func parseField(tok string, depth int) (Field, error) {
	if strings.HasPrefix(tok, vecPrefix) && strings.HasSuffix(tok, vecSuffix) {
		if depth >= maxVecDepth {
			return Field{}, merr.WrapErrParameterInvalidMsg("vec nesting deeper than %d in %q", maxVecDepth, tok)
		}
		elem, err := parseField(tok[len(vecPrefix):len(tok)-len(vecSuffix)], depth+1)
		if err != nil {
			return Field{}, err
		}
		return Field{Kind: KindVec, Elem: &elem}, nil
	}
	k, ok := kindByName[strings.ToLower(tok)]
	if !ok {
		return Field{}, merr.WrapErrParameterInvalidMsg("unknown type %q", tok)
	}
	return Field{Kind: k}, nil
}

// Encode 按字段顺序解析 values 并写入 w，values 个数必须与字段数一致。
func (s Schema) Encode(w *binary.Writer, values []string) error {
	if len(values) != len(s) {
		return merr.WrapErrParameterInvalid(len(s), len(values), "value count does not match schema")
	}
	for i, f := range s {
		if err := f.encode(w, values[i]); err != nil {
			return errors.Wrapf(err, "field %d (%s)", i, f)
		}
	}
	return nil
}

// Decode 按字段顺序从 r 中读取并格式化为文本。
func (s Schema) Decode(r *binary.Reader) ([]string, error) {
	out := make([]string, 0, len(s))
	for i, f := range s {
		v, err := f.decode(r)
		if err != nil {
			return nil, errors.Wrapf(err, "field %d (%s)", i, f)
		}
		out = append(out, v)
	}
	return out, nil
}

const escapeChar = '\\'

// separator 返回 vec 文本中元素之间的分隔符。
func (f Field) separator() byte {
	if f.Elem.Kind == KindVec {
		return ';'
	}
	return ','
}

func needsEscape(c byte) bool {
	return c == escapeChar || c == ',' || c == ';'
}

// splitEscaped 按未转义的 sep 切分 text，并去掉一层转义。
func splitEscaped(text string, sep byte) ([]string, error) {
	if text == "" {
		return nil, nil
	}
	var (
		parts []string
		cur   strings.Builder
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == escapeChar:
			if i+1 >= len(text) || !needsEscape(text[i+1]) {
				return nil, merr.WrapErrParameterInvalidMsg("invalid escape at offset %d in %q", i, text)
			}
			i++
			cur.WriteByte(text[i])
		case c == sep:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(parts, cur.String()), nil
}

// joinEscaped 是 splitEscaped 的逆操作。
func joinEscaped(parts []string, sep byte) string {
	var b strings.Builder
	for i, part := range parts {
		if i > 0 {
			b.WriteByte(sep)
		}
		for j := 0; j < len(part); j++ {
			if needsEscape(part[j]) {
				b.WriteByte(escapeChar)
			}
			b.WriteByte(part[j])
		}
	}
	return b.String()
}

func (f Field) encode(w *binary.Writer, text string) error {
	switch f.Kind {
	case KindU8:
		return encodeUnsigned(text, 8, w.WriteU8)
	case KindU16:
		return encodeUnsigned(text, 16, w.WriteU16)
	case KindU32:
		return encodeUnsigned(text, 32, w.WriteU32)
	case KindU64:
		return encodeUnsigned(text, 64, w.WriteU64)
	case KindI8:
		return encodeSigned(text, 8, w.WriteI8)
	case KindI16:
		return encodeSigned(text, 16, w.WriteI16)
	case KindI32:
		return encodeSigned(text, 32, w.WriteI32)
	case KindI64:
		return encodeSigned(text, 64, w.WriteI64)
	case KindF32:
		v, err := strconv.ParseFloat(strings.TrimSpace(text), 32)
		if err != nil {
			return invalidValue(text, err)
		}
		return w.WriteF32(float32(v))
	case KindF64:
		v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return invalidValue(text, err)
		}
		return w.WriteF64(v)
	case KindBool:
		v, err := strconv.ParseBool(strings.TrimSpace(text))
		if err != nil {
			return invalidValue(text, err)
		}
		return w.WriteBool(v)
	case KindString:
		return w.WriteString(text)
	case KindBlob:
		p, err := hex.DecodeString(strings.TrimSpace(text))
		if err != nil {
			return invalidValue(text, err)
		}
		return w.WriteBlob(p)
	case KindVec:
		parts, err := splitEscaped(text, f.separator())
		if err != nil {
			return err
		}
		return binary.WriteVec(w, parts, f.Elem.encode)
	default:
		return merr.WrapErrParameterInvalidMsg("unknown kind %s", f.Kind)
	}
}

func (f Field) decode(r *binary.Reader) (string, error) {
	switch f.Kind {
	case KindU8:
		return decodeUnsigned(r.ReadU8)
	case KindU16:
		return decodeUnsigned(r.ReadU16)
	case KindU32:
		return decodeUnsigned(r.ReadU32)
	case KindU64:
		return decodeUnsigned(r.ReadU64)
	case KindI8:
		return decodeSigned(r.ReadI8)
	case KindI16:
		return decodeSigned(r.ReadI16)
	case KindI32:
		return decodeSigned(r.ReadI32)
	case KindI64:
		return decodeSigned(r.ReadI64)
	case KindF32:
		v, err := r.ReadF32()
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case KindF64:
		v, err := r.ReadF64()
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case KindBool:
		v, err := r.ReadBool()
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(v), nil
	case KindString:
		return r.ReadString()
	case KindBlob:
		p, err := r.ReadBlob()
		if err != nil {
			return "", err
		}
		return hex.EncodeToString(p), nil
	case KindVec:
		parts, err := binary.ReadVec(r, f.Elem.decode)
		if err != nil {
			return "", err
		}
		return joinEscaped(parts, f.separator()), nil
	default:
		return "", merr.WrapErrParameterInvalidMsg("unknown kind %s", f.Kind)
	}
}

func encodeUnsigned[T constraints.Unsigned](text string, bitSize int, write func(T) error) error {
	v, err := strconv.ParseUint(strings.TrimSpace(text), 10, bitSize)
	if err != nil {
		return invalidValue(text, err)
	}
	return write(T(v))
}

func encodeSigned[T constraints.Signed](text string, bitSize int, write func(T) error) error {
	v, err := strconv.ParseInt(strings.TrimSpace(text), 10, bitSize)
	if err != nil {
		return invalidValue(text, err)
	}
	return write(T(v))
}

func decodeUnsigned[T constraints.Unsigned](read func() (T, error)) (string, error) {
	v, err := read()
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(uint64(v), 10), nil
}

func decodeSigned[T constraints.Signed](read func() (T, error)) (string, error) {
	v, err := read()
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(int64(v), 10), nil
}

func invalidValue(text string, err error) error {
	var numErr *strconv.NumError
	if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
		return merr.WrapErrParameterInvalidMsg("value %q out of range", text)
	}
	return merr.WrapErrParameterInvalidMsg("invalid value %q: %v", text, err)
}
