package binary

import (
	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/bufferio-go/pkg/util/merr"
)

// maxVecPrealloc 限制 ReadVec 根据前缀预分配的元素个数，
// 防止损坏的前缀一次性申请过多内存。
const maxVecPrealloc = 1024

// Encoder 将单个元素写入 Writer。
type Encoder[T any] func(w *Writer, v T) error

// Decoder 从 Reader 中读取单个元素。
type Decoder[T any] func(r *Reader) (T, error)

// Codec 组合了同一元素类型的编码与解码函数。
type Codec[T any] struct {
	Encode Encoder[T]
	Decode Decoder[T]
}

var (
	U8  = Codec[uint8]{Encode: (*Writer).WriteU8, Decode: (*Reader).ReadU8}
	U16 = Codec[uint16]{Encode: (*Writer).WriteU16, Decode: (*Reader).ReadU16}
	U32 = Codec[uint32]{Encode: (*Writer).WriteU32, Decode: (*Reader).ReadU32}
	U64 = Codec[uint64]{Encode: (*Writer).WriteU64, Decode: (*Reader).ReadU64}
	I8  = Codec[int8]{Encode: (*Writer).WriteI8, Decode: (*Reader).ReadI8}
	I16 = Codec[int16]{Encode: (*Writer).WriteI16, Decode: (*Reader).ReadI16}
	I32 = Codec[int32]{Encode: (*Writer).WriteI32, Decode: (*Reader).ReadI32}
	I64 = Codec[int64]{Encode: (*Writer).WriteI64, Decode: (*Reader).ReadI64}
	F32 = Codec[float32]{Encode: (*Writer).WriteF32, Decode: (*Reader).ReadF32}
	F64 = Codec[float64]{Encode: (*Writer).WriteF64, Decode: (*Reader).ReadF64}

	Bool   = Codec[bool]{Encode: (*Writer).WriteBool, Decode: (*Reader).ReadBool}
	String = Codec[string]{Encode: (*Writer).WriteString, Decode: (*Reader).ReadString}
	Blob   = Codec[[]byte]{Encode: (*Writer).WriteBlob, Decode: (*Reader).ReadBlob}
)

// VecOf 返回元素编码为 elem 的 vec 编解码器，可用于嵌套序列。
func VecOf[T any](elem Codec[T]) Codec[[]T] {
	return Codec[[]T]{
		Encode: func(w *Writer, items []T) error { return WriteVec(w, items, elem.Encode) },
		Decode: func(r *Reader) ([]T, error) { return ReadVec(r, elem.Decode) },
	}
}

// WriteVec 写入 u32 元素个数前缀，再按顺序用 enc 写入每个元素。
// 个数超出上限时返回 ErrLengthOverflow，且不写入任何字节；
// 任一元素写入失败立即返回。
func WriteVec[T any](w *Writer, items []T, enc Encoder[T]) error {
	const op = "write_vec"
	if enc == nil {
		return w.fail(op, merr.WrapErrParameterMissing("encoder"))
	}
	if err := w.checkLength(op, len(items)); err != nil {
		return err
	}
	if err := writeUint(w, op, uint32(len(items)), 4); err != nil {
		return err
	}
	for i, item := range items {
		if err := enc(w, item); err != nil {
			return errors.Wrapf(err, "write_vec element %d", i)
		}
	}
	return nil
}

// ReadVec 读取 u32 元素个数前缀，再用 dec 依次读取每个元素。
// 元素读取失败时返回错误，游标停在最后一个成功读取的元素之后。
func ReadVec[T any](r *Reader, dec Decoder[T]) ([]T, error) {
	const op = "read_vec"
	if dec == nil {
		return nil, r.fail(op, merr.WrapErrParameterMissing("decoder"))
	}
	start, err := r.Position()
	if err != nil {
		return nil, err
	}
	count, err := r.readLength(op)
	if err != nil {
		return nil, r.rewind(start, err)
	}

	items := make([]T, 0, min(count, maxVecPrealloc))
	for i := uint32(0); i < count; i++ {
		pos, err := r.Position()
		if err != nil {
			return nil, err
		}
		item, err := dec(r)
		if err != nil {
			return nil, errors.Wrapf(r.rewind(pos, err), "read_vec element %d", i)
		}
		items = append(items, item)
	}
	return items, nil
}
