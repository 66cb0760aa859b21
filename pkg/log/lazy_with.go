// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap/zapcore"
)

// lazyWithCore 推迟 core.With(fields) 的字段编码，直到第一次真正写日志。
// 读写器每次出错都可能调用 With()，大多数情况下日志级别不满足，编码字段纯属浪费。
type lazyWithCore struct {
	core   atomic.Pointer[zapcore.Core]
	once   sync.Once
	fields []zapcore.Field
}

var _ zapcore.Core = (*lazyWithCore)(nil)

// NewLazyWith 返回一个在首次 Check/With/Sync 时才附加 fields 的 Core。
func NewLazyWith(core zapcore.Core, fields []zapcore.Field) zapcore.Core {
	if len(fields) == 0 {
		return core
	}
	d := &lazyWithCore{fields: fields}
	d.core.Store(&core)
	return d
}

func (d *lazyWithCore) materialize() zapcore.Core {
	d.once.Do(func() {
		c := (*d.core.Load()).With(d.fields)
		d.core.Store(&c)
	})
	return *d.core.Load()
}

// Enabled 只读取级别，不触发字段编码。
func (d *lazyWithCore) Enabled(level zapcore.Level) bool {
	return (*d.core.Load()).Enabled(level)
}

func (d *lazyWithCore) Sync() error {
	return d.materialize().Sync()
}

// Write 只会在 Check 之后被调用，此时字段已经附加。
func (d *lazyWithCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	return d.materialize().Write(entry, fields)
}

func (d *lazyWithCore) With(fields []zapcore.Field) zapcore.Core {
	return d.materialize().With(fields)
}

func (d *lazyWithCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !d.Enabled(e.Level) {
		return ce
	}
	return d.materialize().Check(e, ce)
}
