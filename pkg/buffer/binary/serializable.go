package binary

import (
	"github.com/lk2023060901/bufferio-go/internal/pool/membuffer"
	"github.com/lk2023060901/bufferio-go/pkg/util/merr"
)

// Serializable 由手写字段顺序的调用方类型实现。
// MarshalBuffer 与 UnmarshalBuffer 必须以相同顺序读写相同类型。
type Serializable interface {
	MarshalBuffer(w *Writer) error
	UnmarshalBuffer(r *Reader) error
}

// Marshal 将 v 编码为字节切片。编码过程使用池化的内存流，返回值为独立副本。
func Marshal(v Serializable, opts ...Option) ([]byte, error) {
	buf := membuffer.Get()
	defer membuffer.Put(buf)

	w := NewWriter(buf, opts...)
	if err := v.MarshalBuffer(w); err != nil {
		return nil, err
	}
	return w.ToVec()
}

// Unmarshal 从 data 中解码 v，data 必须被恰好消费完。
func Unmarshal(data []byte, v Serializable, opts ...Option) error {
	r := NewBytesReader(data, opts...)
	if err := v.UnmarshalBuffer(r); err != nil {
		return err
	}
	rem, err := r.Remaining()
	if err != nil {
		return err
	}
	if rem > 0 {
		return r.fail("unmarshal", merr.WrapErrParameterInvalidMsg("%d trailing bytes after unmarshal", rem))
	}
	return nil
}

// SerializableCodec 返回以 *T 的 Serializable 实现作为元素编解码的 Codec，
// 用于 WriteVec / ReadVec 处理调用方自定义类型。
func SerializableCodec[T any, PT interface {
	*T
	Serializable
}]() Codec[T] {
	return Codec[T]{
		Encode: func(w *Writer, v T) error {
			return PT(&v).MarshalBuffer(w)
		},
		Decode: func(r *Reader) (T, error) {
			var v T
			err := PT(&v).UnmarshalBuffer(r)
			return v, err
		},
	}
}
