package logger

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Run counters updated by the sessions and the tick stream. Snapshots of
// the deltas are logged and published on every report interval.
var (
	messagesRead int64
	bytesRead    int64
	ticksDropped int64
	decodeErrors int64
	reconnects   int64
	warnCount    int64
	errorCount   int64
	lastMessages int64
	lastBytes    int64
)

func recordWarn() {
	atomic.AddInt64(&warnCount, 1)
}

func recordError() {
	atomic.AddInt64(&errorCount, 1)
}

// IncrementMessageRead records one successfully decoded inbound message.
func IncrementMessageRead(size int) {
	atomic.AddInt64(&messagesRead, 1)
	atomic.AddInt64(&bytesRead, int64(size))
}

// IncrementTickDropped records a tick that could not be buffered.
func IncrementTickDropped() {
	atomic.AddInt64(&ticksDropped, 1)
}

// IncrementDecodeError records a malformed message that was skipped.
func IncrementDecodeError() {
	atomic.AddInt64(&decodeErrors, 1)
}

// IncrementReconnect records one reconnection event.
func IncrementReconnect() {
	atomic.AddInt64(&reconnects, 1)
}

// MessagesRead returns the current message counter.
func MessagesRead() int64 {
	return atomic.LoadInt64(&messagesRead)
}

// StartReport launches a goroutine that periodically logs run counters and
// process resource usage until the context is cancelled.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				emitReport(ctx, log, interval)
			}
		}
	}()
}

func emitReport(ctx context.Context, log *Log, interval time.Duration) {
	msgs := atomic.LoadInt64(&messagesRead)
	bytes := atomic.LoadInt64(&bytesRead)
	msgDelta := msgs - atomic.SwapInt64(&lastMessages, msgs)
	byteDelta := bytes - atomic.SwapInt64(&lastBytes, bytes)

	fields := Fields{
		"messages":       msgs,
		"messages_delta": msgDelta,
		"bytes_delta":    byteDelta,
		"ticks_dropped":  atomic.LoadInt64(&ticksDropped),
		"decode_errors":  atomic.LoadInt64(&decodeErrors),
		"reconnects":     atomic.LoadInt64(&reconnects),
		"warns":          atomic.LoadInt64(&warnCount),
		"errors":         atomic.LoadInt64(&errorCount),
		"goroutines":     runtime.NumGoroutine(),
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		fields["cpu_pct"] = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		fields["mem_pct"] = vm.UsedPercent
	}
	if counters, err := gnet.IOCounters(false); err == nil && len(counters) > 0 {
		fields["net_recv_bytes"] = counters[0].BytesRecv
	}

	log.WithComponent("report").WithFields(fields).Info("run report")

	rate := float64(msgDelta) / interval.Seconds()
	publishMetrics(ctx, []cwtypes.MetricDatum{
		{
			MetricName: aws.String("MessagesPerSecond"),
			Unit:       cwtypes.StandardUnitCountSecond,
			Value:      aws.Float64(rate),
		},
		{
			MetricName: aws.String("Reconnections"),
			Unit:       cwtypes.StandardUnitCount,
			Value:      aws.Float64(float64(atomic.LoadInt64(&reconnects))),
		},
	})
}
