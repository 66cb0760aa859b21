package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	bufferMetricSubsystem = "buffer"
	poolMetricSubsystem   = "pool"
)

var (
	BufferBytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: bufferioNamespace,
		Subsystem: bufferMetricSubsystem,
		Name:      "bytes_total",
		Help:      "读写器成功写入或消费的字节总数",
	}, []string{directionLabelName})

	BufferOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: bufferioNamespace,
		Subsystem: bufferMetricSubsystem,
		Name:      "ops_total",
		Help:      "按操作名统计的底层流读写次数，变长类型的前缀与内容分别计数",
	}, []string{directionLabelName, opLabelName})

	BufferErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: bufferioNamespace,
		Subsystem: bufferMetricSubsystem,
		Name:      "errors_total",
		Help:      "按错误类别统计的读写失败次数",
	}, []string{directionLabelName, kindLabelName})

	PoolCalibrations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: bufferioNamespace,
		Subsystem: poolMetricSubsystem,
		Name:      "calibrations_total",
		Help:      "内存缓冲区对象池重新校准默认大小的次数",
	})
)
