// Package mem 实现了一个可增长、可随机定位的内存字节流。
//
// Buffer 同时实现 io.Reader、io.Writer、io.Seeker 与 io.ReaderAt，
// 用作 buffer.Writer / buffer.Reader 的内存后端。与 bytes.Buffer 不同，
// 读写共享同一个游标，写入发生在游标处（覆盖后再追加）。
package mem

import (
	"errors"
	"io"
	"math"
	"math/bits"
)

const (
	// DefaultBufferSize 是首次写入时分配的默认容量。
	DefaultBufferSize   = 1024     // 1KB
	bufferGrowThreshold = 4 * 1024 // 4KB

	maxInt = math.MaxInt
)

var (
	// ErrNegativePosition 表示 Seek 或 ReadAt 的目标位置为负数。
	ErrNegativePosition = errors.New("mem: negative position")
	// ErrInvalidWhence 表示 Seek 收到了未知的 whence。
	ErrInvalidWhence = errors.New("mem: invalid whence")
	// ErrTooLarge 表示写入后的长度超出 int 可表示范围。
	ErrTooLarge = errors.New("mem: buffer too large")
)

// Buffer 是一个内存中的可定位字节流，零值即为可用的空缓冲区。
type Buffer struct {
	buf []byte // len(buf) 即流的逻辑长度
	pos int64  // 当前游标，可以超过 len(buf)
}

var (
	_ io.ReadWriteSeeker = (*Buffer)(nil)
	_ io.ReaderAt        = (*Buffer)(nil)
	_ io.ByteReader      = (*Buffer)(nil)
	_ io.ByteWriter      = (*Buffer)(nil)
)

// New 创建一个预留 size 字节容量的空 Buffer，size 会向上取整为 2 的幂。
func New(size int) *Buffer {
	if size <= 0 {
		return &Buffer{}
	}
	return &Buffer{buf: make([]byte, 0, ceilToPowerOfTwo(size))}
}

// NewFrom 以 b 作为初始内容创建 Buffer，游标位于 0。
// Buffer 直接持有 b，调用方之后不应再修改 b。
func NewFrom(b []byte) *Buffer {
	return &Buffer{buf: b}
}

// Read 从游标处读取数据；游标位于末尾或之后时返回 io.EOF。
func (b *Buffer) Read(p []byte) (int, error) {
	if b.pos >= int64(len(b.buf)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, b.buf[b.pos:])
	b.pos += int64(n)
	return n, nil
}

// ReadByte 读取游标处的一个字节。
func (b *Buffer) ReadByte() (byte, error) {
	if b.pos >= int64(len(b.buf)) {
		return 0, io.EOF
	}
	c := b.buf[b.pos]
	b.pos++
	return c, nil
}

// ReadAt 实现 io.ReaderAt，不移动游标。
func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrNegativePosition
	}
	if off >= int64(len(b.buf)) {
		return 0, io.EOF
	}
	n := copy(p, b.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Write 在游标处写入 p：先覆盖已有内容，超出部分追加到末尾。
// 游标位于末尾之后时，中间空洞以 0 填充。
func (b *Buffer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if b.pos > int64(maxInt-len(p)) {
		return 0, ErrTooLarge
	}
	pos := int(b.pos)
	end := pos + len(p)
	b.extend(pos, end)
	copy(b.buf[pos:], p)
	b.pos = int64(end)
	return len(p), nil
}

// WriteByte 在游标处写入单个字节。
func (b *Buffer) WriteByte(c byte) error {
	_, err := b.Write([]byte{c})
	return err
}

// WriteString 在游标处写入字符串 s 的字节。
func (b *Buffer) WriteString(s string) (int, error) {
	return b.Write([]byte(s))
}

// Seek 实现 io.Seeker。允许定位到末尾之后，但不允许负位置。
func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = b.pos
	case io.SeekEnd:
		base = int64(len(b.buf))
	default:
		return 0, ErrInvalidWhence
	}
	if (offset > 0 && base > math.MaxInt64-offset) || base+offset < 0 {
		return 0, ErrNegativePosition
	}
	b.pos = base + offset
	return b.pos, nil
}

// Bytes 返回完整内容（从 0 到逻辑长度）的视图，与游标位置无关。
// 返回的切片在下一次写入前有效。
func (b *Buffer) Bytes() []byte {
	return b.buf
}

// Len 返回流的逻辑长度。
func (b *Buffer) Len() int {
	return len(b.buf)
}

// Size 返回流的逻辑长度，语义与 bytes.Reader.Size 一致。
func (b *Buffer) Size() int64 {
	return int64(len(b.buf))
}

// Cap 返回底层切片容量。
func (b *Buffer) Cap() int {
	return cap(b.buf)
}

// Position 返回当前游标位置。
func (b *Buffer) Position() int64 {
	return b.pos
}

// Reset 清空内容并将游标归零，保留已分配的容量。
func (b *Buffer) Reset() {
	b.buf = b.buf[:0]
	b.pos = 0
}

// extend 保证 buf 至少覆盖 [0, end)，并清零 [len, pos) 之间的空洞。
func (b *Buffer) extend(pos, end int) {
	if end <= len(b.buf) {
		return
	}
	if end > cap(b.buf) {
		b.grow(end)
	}
	old := len(b.buf)
	b.buf = b.buf[:end]
	if pos > old {
		// 复用容量时可能残留 Reset 之前的数据。
		clear(b.buf[old:pos])
	}
}

func (b *Buffer) grow(need int) {
	newCap := need
	if n := cap(b.buf); n == 0 {
		if need <= DefaultBufferSize {
			newCap = DefaultBufferSize
		} else {
			newCap = ceilToPowerOfTwo(need)
		}
	} else {
		doubleCap := n + n
		if need <= doubleCap {
			if n < bufferGrowThreshold {
				newCap = doubleCap
			} else {
				// Check 0 < n to detect overflow and prevent an infinite loop.
				for 0 < n && n < need {
					n += n / 4
				}
				if n > 0 {
					newCap = n
				}
			}
		}
	}
	newBuf := make([]byte, len(b.buf), newCap)
	copy(newBuf, b.buf)
	b.buf = newBuf
}

// ceilToPowerOfTwo 将 n 向上取整为最接近的 2 的幂。
func ceilToPowerOfTwo(n int) int {
	if n <= 0 {
		return 0
	}
	if n&(n-1) == 0 {
		return n
	}
	return 1 << bits.Len(uint(n))
}
