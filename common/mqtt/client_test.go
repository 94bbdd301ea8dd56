package mqtt

import (
	"testing"
	"time"

	"driveguard/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewClient_Unreachable(t *testing.T) {
	cfg := &config.MQTTConfig{
		Broker:         "tcp://127.0.0.1:1",
		ClientID:       "driveguard-test",
		ConnectTimeout: 500 * time.Millisecond,
	}

	client, err := NewClient(cfg, zap.NewNop())

	require.Error(t, err)
	assert.Nil(t, client)
}
