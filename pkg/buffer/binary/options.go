package binary

import (
	"math"

	"github.com/lk2023060901/bufferio-go/pkg/log"
)

// MaxLength 是 u32 长度前缀能表示的最大长度。
const MaxLength = math.MaxUint32

type options struct {
	maxLength uint32
	logger    *log.MLogger
}

// Option 配置 Writer / Reader。
type Option func(*options)

func defaultOptions() options {
	return options{maxLength: MaxLength}
}

// WithMaxLength 设置字符串、blob 与 vec 长度前缀允许的上限，
// 超过上限的写入或读取都会返回 ErrLengthOverflow。
func WithMaxLength(n uint32) Option {
	return func(o *options) {
		o.maxLength = n
	}
}

// WithLogger 为读写器绑定独立的 Logger，未设置时使用全局 Logger。
func WithLogger(logger *log.MLogger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
