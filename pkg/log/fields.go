package log

import (
	"go.uber.org/zap"
)

const (
	FieldNameModule    = "module"
	FieldNameComponent = "component"
	FieldNamePosition  = "position"
	FieldNameOp        = "op"
)

// FieldModule 返回一个包含模块名的 zap 字段。
func FieldModule(module string) zap.Field {
	return zap.String(FieldNameModule, module)
}

// FieldComponent 返回一个包含组件名的 zap 字段。
func FieldComponent(component string) zap.Field {
	return zap.String(FieldNameComponent, component)
}

// FieldPosition 返回一个包含流游标位置的 zap 字段。
func FieldPosition(pos int64) zap.Field {
	return zap.Int64(FieldNamePosition, pos)
}

// FieldOp 返回一个包含读写操作名的 zap 字段，例如 read_string。
func FieldOp(op string) zap.Field {
	return zap.String(FieldNameOp, op)
}
