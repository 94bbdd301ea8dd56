package eventlog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type pendingWrite struct {
	value  string
	ttl    time.Duration
	remove bool
}

// AsyncKVStore 写操作交给后台 goroutine，帧处理路径不等待网络/磁盘
// 同一个 key 只保留最新一次写入；读操作优先返回未落盘的值
type AsyncKVStore struct {
	inner  KVStore
	logger *zap.Logger

	mu       sync.Mutex
	pending  map[string]pendingWrite
	inflight map[string]pendingWrite
	order    []string
	notify   chan struct{}
	done     chan struct{}
	closed   bool
}

// NewAsyncKVStore 创建异步 KV 并启动后台写入
func NewAsyncKVStore(inner KVStore, logger *zap.Logger) *AsyncKVStore {
	a := &AsyncKVStore{
		inner:    inner,
		logger:   logger,
		pending:  make(map[string]pendingWrite),
		inflight: make(map[string]pendingWrite),
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *AsyncKVStore) Get(ctx context.Context, key string) (string, error) {
	a.mu.Lock()
	w, ok := a.pending[key]
	if !ok {
		w, ok = a.inflight[key]
	}
	a.mu.Unlock()
	if ok {
		if w.remove {
			return "", ErrMiss
		}
		return w.value, nil
	}
	return a.inner.Get(ctx, key)
}

func (a *AsyncKVStore) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	a.put(key, pendingWrite{value: value, ttl: ttl})
	return nil
}

func (a *AsyncKVStore) Remove(_ context.Context, key string) error {
	a.put(key, pendingWrite{remove: true})
	return nil
}

func (a *AsyncKVStore) put(key string, w pendingWrite) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		a.apply(context.Background(), key, w)
		return
	}
	if _, exists := a.pending[key]; !exists {
		a.order = append(a.order, key)
	}
	a.pending[key] = w
	select {
	case a.notify <- struct{}{}:
	default:
	}
	a.mu.Unlock()
}

func (a *AsyncKVStore) run() {
	defer close(a.done)
	for range a.notify {
		a.flush()
	}
	a.flush()
}

func (a *AsyncKVStore) flush() {
	for {
		a.mu.Lock()
		if len(a.order) == 0 {
			a.mu.Unlock()
			return
		}
		key := a.order[0]
		a.order = a.order[1:]
		w := a.pending[key]
		delete(a.pending, key)
		a.inflight[key] = w
		a.mu.Unlock()

		a.apply(context.Background(), key, w)

		a.mu.Lock()
		delete(a.inflight, key)
		a.mu.Unlock()
	}
}

// Flush 阻塞直到当前排队的写入全部落盘
func (a *AsyncKVStore) Flush() {
	for {
		a.mu.Lock()
		idle := len(a.pending) == 0 && len(a.inflight) == 0
		closed := a.closed
		a.mu.Unlock()
		if idle || closed {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (a *AsyncKVStore) apply(ctx context.Context, key string, w pendingWrite) {
	var err error
	if w.remove {
		err = a.inner.Remove(ctx, key)
	} else {
		err = a.inner.Set(ctx, key, w.value, w.ttl)
	}
	if err != nil {
		a.logger.Warn("Failed to persist key",
			zap.String("key", key),
			zap.Bool("remove", w.remove),
			zap.Error(err),
		)
	}
}

// Close 停止后台写入并把剩余写入落盘；之后的写入同步执行
func (a *AsyncKVStore) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.notify)
	a.mu.Unlock()
	<-a.done
}
