package alert

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"driveguard/internal/models"

	"go.uber.org/zap"
)

// ErrQueueFull 异步队列已满，本次告警被丢弃
var ErrQueueFull = errors.New("alert queue full")

type sinkOp struct {
	action string
	kind   models.AlertKind
}

// AsyncSink 把慢速 sink（网络）放到后台 goroutine，帧处理路径只做非阻塞入队
// 队列满时丢弃新消息（drop-new），不排队等待
// 连续的 Stop 只入队一次，不占用 Trigger 的队列位置
type AsyncSink struct {
	inner  AlertSink
	logger *zap.Logger
	queue  chan sinkOp

	mu         sync.Mutex
	closed     bool
	lastIsStop bool
	wg         sync.WaitGroup
	dropped    atomic.Int64
}

// NewAsyncSink 创建异步 sink，size 为队列长度
func NewAsyncSink(inner AlertSink, size int, logger *zap.Logger) *AsyncSink {
	if size <= 0 {
		size = 16
	}
	return &AsyncSink{
		inner:  inner,
		logger: logger,
		queue:  make(chan sinkOp, size),
	}
}

// Start 启动后台投递 goroutine
func (s *AsyncSink) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for op := range s.queue {
			var err error
			if op.action == ActionStop {
				err = s.inner.Stop(ctx)
			} else {
				err = s.inner.Trigger(ctx, op.kind)
			}
			if err != nil {
				s.logger.Warn("Async alert delivery failed",
					zap.String("action", op.action),
					zap.String("kind", string(op.kind)),
					zap.Error(err),
				)
			}
		}
	}()
}

func (s *AsyncSink) Trigger(_ context.Context, kind models.AlertKind) error {
	return s.enqueue(sinkOp{action: ActionTrigger, kind: kind})
}

func (s *AsyncSink) Stop(_ context.Context) error {
	return s.enqueue(sinkOp{action: ActionStop})
}

func (s *AsyncSink) enqueue(op sinkOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("alert sink closed")
	}
	stop := op.action == ActionStop
	if stop && s.lastIsStop {
		return nil
	}
	select {
	case s.queue <- op:
		s.lastIsStop = stop
		return nil
	default:
		s.dropped.Add(1)
		return ErrQueueFull
	}
}

// Dropped 因队列满被丢弃的消息数
func (s *AsyncSink) Dropped() int64 {
	return s.dropped.Load()
}

// Close 停止接收新消息，投递完队列中剩余消息后返回
func (s *AsyncSink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()
	s.wg.Wait()
}
