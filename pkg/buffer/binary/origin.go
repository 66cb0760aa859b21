package binary

import (
	"fmt"
	"math"
)

// Origin 表示定位的基准点。
type Origin int8

const (
	OriginStart Origin = iota
	OriginCurrent
	OriginEnd
)

func (o Origin) String() string {
	switch o {
	case OriginStart:
		return "Start"
	case OriginCurrent:
		return "Current"
	case OriginEnd:
		return "End"
	default:
		return fmt.Sprintf("Origin(%d)", int8(o))
	}
}

// SeekOrigin 描述一次定位：目标位置 = 基准点 + Offset。
type SeekOrigin struct {
	Origin Origin
	Offset int64
}

// Start 返回相对流起点的定位。
func Start(offset int64) SeekOrigin { return SeekOrigin{Origin: OriginStart, Offset: offset} }

// Current 返回相对当前游标的定位。
func Current(offset int64) SeekOrigin { return SeekOrigin{Origin: OriginCurrent, Offset: offset} }

// End 返回相对流末尾的定位。
func End(offset int64) SeekOrigin { return SeekOrigin{Origin: OriginEnd, Offset: offset} }

func (o SeekOrigin) String() string {
	return fmt.Sprintf("%s%+d", o.Origin, o.Offset)
}

// target 计算绝对位置，溢出或结果为负时返回 false。
func (o SeekOrigin) target(base int64) (int64, bool) {
	if o.Offset > 0 && base > math.MaxInt64-o.Offset {
		return 0, false
	}
	if o.Offset < 0 && base < math.MinInt64-o.Offset {
		return 0, false
	}
	t := base + o.Offset
	return t, t >= 0
}
