package main

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestWaitForShutdown_SignalWaitsForService(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	sigChan <- syscall.SIGTERM
	serviceDone := make(chan error)

	var finished atomic.Bool
	go func() {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		serviceDone <- nil
	}()

	err := waitForShutdown(zap.NewNop(), sigChan, serviceDone, cancel)

	assert.NoError(t, err)
	assert.True(t, finished.Load())
}

func TestWaitForShutdown_ServiceError(t *testing.T) {
	serviceDone := make(chan error, 1)
	serviceDone <- errors.New("http server: address in use")

	err := waitForShutdown(zap.NewNop(), make(chan os.Signal), serviceDone, func() {})

	assert.EqualError(t, err, "http server: address in use")
}
