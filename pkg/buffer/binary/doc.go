// Package binary 实现了基于可定位字节流的二进制读写器。
//
// Writer 将基本类型按小端序编码写入 io.WriteSeeker，Reader 按相同规则从
// io.ReadSeeker 中解码。变长类型使用长度前缀自描述：
//
//	string: u32 字节长度 + UTF-8 字节
//	blob:   u32 字节长度 + 原始字节
//	vec:    u32 元素个数 + 逐个元素编码
//
// 读写顺序由调用方保证一致，本包不携带任何 schema。
// 读写器不持有底层流的所有权，也不做任何并发保护。
package binary
