package binary

import (
	"io"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/exp/constraints"

	"github.com/lk2023060901/bufferio-go/pkg/log"
	"github.com/lk2023060901/bufferio-go/pkg/metrics"
	"github.com/lk2023060901/bufferio-go/pkg/util/merr"
)

// sizer 由能直接给出流长度的后端实现，例如 bytes.Reader 与 mem.Buffer。
type sizer interface {
	Size() int64
}

// positioner 由能直接给出游标位置的后端实现，例如 mem.Buffer。
type positioner interface {
	Position() int64
}

// cursor 是 Writer 与 Reader 共享的定位逻辑。
type cursor struct {
	log.Binder

	s         io.Seeker
	direction string
	opts      options
}

func (c *cursor) init(s io.Seeker, direction string, opts []Option) {
	c.s = s
	c.direction = direction
	c.opts = defaultOptions()
	for _, opt := range opts {
		opt(&c.opts)
	}
	if c.opts.logger != nil {
		c.SetLogger(c.opts.logger)
	}
}

// Position 返回游标的绝对位置。
func (c *cursor) Position() (int64, error) {
	if p, ok := c.s.(positioner); ok {
		return p.Position(), nil
	}
	pos, err := c.s.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, c.fail("position", merr.WrapErrIoFailed("position", err))
	}
	return pos, nil
}

// Len 返回流的总长度，游标位置保持不变。
func (c *cursor) Len() (int64, error) {
	if s, ok := c.s.(sizer); ok {
		return s.Size(), nil
	}
	cur, err := c.Position()
	if err != nil {
		return 0, err
	}
	end, err := c.s.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, c.fail("len", merr.WrapErrIoFailed("len", err))
	}
	if end != cur {
		if _, err := c.s.Seek(cur, io.SeekStart); err != nil {
			return 0, c.fail("len", merr.WrapErrIoFailed("len", err))
		}
	}
	return end, nil
}

// Seek 按 origin 移动游标并返回新的绝对位置。
// 目标为负或计算溢出时不触碰底层流，直接返回 ErrSeekOutOfRange。
func (c *cursor) Seek(origin SeekOrigin) (int64, error) {
	var (
		base int64
		err  error
	)
	switch origin.Origin {
	case OriginStart:
	case OriginCurrent:
		base, err = c.Position()
	case OriginEnd:
		base, err = c.Len()
	default:
		return 0, c.fail("seek", merr.WrapErrParameterInvalidMsg("unknown seek origin %s", origin.Origin))
	}
	if err != nil {
		return 0, err
	}

	target, ok := origin.target(base)
	if !ok {
		c.Logger().Debug("seek target out of range",
			log.FieldOp("seek"),
			zap.Stringer("origin", origin),
			zap.Int64("base", base))
		return 0, c.fail("seek", merr.WrapErrSeekOutOfRange(origin.Origin.String(), origin.Offset))
	}

	pos, err := c.s.Seek(target, io.SeekStart)
	if err != nil {
		return 0, c.fail("seek", merr.WrapErrSeekOutOfRange(origin.Origin.String(), origin.Offset, err))
	}
	metrics.BufferOps.WithLabelValues(c.direction, "seek").Inc()
	return pos, nil
}

// rewind 将游标恢复到 pos，用于失败时撤销部分消费。
func (c *cursor) rewind(pos int64, cause error) error {
	if _, err := c.s.Seek(pos, io.SeekStart); err != nil {
		return merr.Combine(cause, merr.WrapErrSeekOutOfRange(OriginStart.String(), pos, err))
	}
	return cause
}

// checkLength 校验变长数据的长度是否能放进长度前缀。
func (c *cursor) checkLength(op string, n int) error {
	if uint64(n) > uint64(c.opts.maxLength) {
		return c.fail(op, merr.WrapErrLengthOverflow(op, uint64(n), uint64(c.opts.maxLength)))
	}
	return nil
}

func (c *cursor) record(op string, n int) {
	metrics.BufferOps.WithLabelValues(c.direction, op).Inc()
	if n > 0 {
		metrics.BufferBytes.WithLabelValues(c.direction).Add(float64(n))
	}
}

func (c *cursor) fail(op string, err error) error {
	metrics.BufferErrors.WithLabelValues(c.direction, errorKind(err)).Inc()
	return err
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, merr.ErrIoUnexpectEOF):
		return "eof"
	case errors.Is(err, merr.ErrIoFailed):
		return "io"
	case errors.Is(err, merr.ErrEncodingInvalid):
		return "encoding"
	case errors.Is(err, merr.ErrLengthOverflow):
		return "overflow"
	case errors.Is(err, merr.ErrSeekOutOfRange):
		return "seek"
	case errors.Is(err, merr.ErrFormatInvalid):
		return "format"
	case errors.Is(err, merr.ErrOperationNotSupported):
		return "unsupported"
	case errors.Is(err, merr.ErrParameterInvalid):
		return "parameter"
	default:
		return "unknown"
	}
}

// putUint 以小端序将 v 的低 len(p) 字节写入 p。
func putUint[T constraints.Unsigned](p []byte, v T) {
	for i := range p {
		p[i] = byte(v >> (8 * i))
	}
}

// getUint 以小端序从 p 中解码无符号整数。
func getUint[T constraints.Unsigned](p []byte) T {
	var v T
	for i := range p {
		v |= T(p[i]) << (8 * i)
	}
	return v
}
