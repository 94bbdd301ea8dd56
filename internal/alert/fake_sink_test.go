package alert

import (
	"context"
	"errors"
	"sync"

	"driveguard/internal/models"
)

// fakeSink 记录调用，可配置返回错误或 panic
type fakeSink struct {
	mu       sync.Mutex
	triggers []models.AlertKind
	stops    int
	err      error
	panicMsg string
}

func (f *fakeSink) Trigger(_ context.Context, kind models.AlertKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.triggers = append(f.triggers, kind)
	return f.err
}

func (f *fakeSink) Stop(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return f.err
}

func (f *fakeSink) Triggers() []models.AlertKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.AlertKind, len(f.triggers))
	copy(out, f.triggers)
	return out
}

func (f *fakeSink) Stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

var errSinkDown = errors.New("speaker unavailable")
