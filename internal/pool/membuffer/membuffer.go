// Copyright (c) 2019 The Gnet Authors. All rights reserved.
// Copyright (c) 2016 Aliaksandr Valialkin, VertaMedia
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Use of this source code is governed by a MIT license that can be found
// at https://github.com/valyala/bytebufferpool/blob/master/LICENSE

// Package membuffer 实现了 mem.Buffer 的自校准对象池。
//
// Marshal 等一次性序列化路径从这里借出内存流，用完归还，
// 池会按归还时的数据长度分布自动调整新建缓冲区的默认容量。
package membuffer

import (
	"math/bits"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/lk2023060901/bufferio-go/pkg/buffer/mem"
	"github.com/lk2023060901/bufferio-go/pkg/metrics"
)

const (
	minBitSize = 6 // 2**6=64，为典型 CPU cache line 大小
	steps      = 20

	minSize = 1 << minBitSize

	calibrateCallsThreshold = 42000
	maxPercentile           = 0.95
)

// Pool 表示 mem.Buffer 的对象池。
//
// 说明：
//   - 不同用途可以使用不同的 Pool，以减少内存浪费；
//   - 超过 maxSize 的缓冲区不会被回收，避免个别大消息长期占用内存。
type Pool struct {
	calls       [steps]atomic.Uint64
	calibrating atomic.Bool

	defaultSize atomic.Uint64
	maxSize     atomic.Uint64

	pool sync.Pool
}

var builtinPool Pool

// Get 从默认池中获取一个空的内存缓冲区。
func Get() *mem.Buffer { return builtinPool.Get() }

// Put 将缓冲区归还到默认池中，归还后不允许再访问。
func Put(b *mem.Buffer) { builtinPool.Put(b) }

// Get 从 Pool 中获取一个长度为 0、游标为 0 的缓冲区。
func (p *Pool) Get() *mem.Buffer {
	v := p.pool.Get()
	if v != nil {
		return v.(*mem.Buffer)
	}
	return mem.New(int(p.defaultSize.Load()))
}

// Put 将通过 Get 获取的缓冲区归还到 Pool 中。
func (p *Pool) Put(b *mem.Buffer) {
	if b == nil {
		return
	}
	idx := index(b.Len())

	if p.calls[idx].Add(1) > calibrateCallsThreshold {
		p.calibrate()
	}

	maxSize := int(p.maxSize.Load())
	if maxSize == 0 || b.Cap() <= maxSize {
		b.Reset()
		p.pool.Put(b)
	}
}

// DefaultSize 返回当前校准出的默认容量，未校准时为 0。
func (p *Pool) DefaultSize() int { return int(p.defaultSize.Load()) }

// MaxSize 返回当前可回收的最大容量，0 表示不限制。
func (p *Pool) MaxSize() int { return int(p.maxSize.Load()) }

func (p *Pool) calibrate() {
	if !p.calibrating.CompareAndSwap(false, true) {
		return
	}
	defer p.calibrating.Store(false)

	a := make([]callSize, 0, steps)
	var callsSum uint64
	for i := uint64(0); i < steps; i++ {
		calls := p.calls[i].Swap(0)
		callsSum += calls
		a = append(a, callSize{
			calls: calls,
			size:  minSize << i,
		})
	}
	// 按调用次数降序，次数相同时较小的尺寸优先。
	slices.SortStableFunc(a, func(x, y callSize) int {
		switch {
		case x.calls > y.calls:
			return -1
		case x.calls < y.calls:
			return 1
		default:
			return 0
		}
	})

	defaultSize := a[0].size
	maxSize := defaultSize

	maxSum := uint64(float64(callsSum) * maxPercentile)
	callsSum = 0
	for i := 0; i < steps; i++ {
		if callsSum > maxSum {
			break
		}
		callsSum += a[i].calls
		if size := a[i].size; size > maxSize {
			maxSize = size
		}
	}

	p.defaultSize.Store(defaultSize)
	p.maxSize.Store(maxSize)
	metrics.PoolCalibrations.Inc()
}

type callSize struct {
	calls uint64
	size  uint64
}

// index 返回长度 n 所属的尺寸档位，档位 i 覆盖 (minSize<<(i-1), minSize<<i]。
func index(n int) int {
	n--
	n >>= minBitSize
	idx := 0
	if n > 0 {
		idx = bits.Len(uint(n))
	}
	if idx >= steps {
		idx = steps - 1
	}
	return idx
}
