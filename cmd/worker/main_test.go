package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRetryDelayGrowsExponentially(t *testing.T) {
	delay := retryDelay(time.Second, 0)
	task := asynq.NewTask("receipt:send", nil)
	require.Equal(t, time.Second, delay(0, nil, task))
	require.Equal(t, 2*time.Second, delay(1, nil, task))
	require.Equal(t, 8*time.Second, delay(3, nil, task))
}

func TestRetryDelayJitterStaysInBounds(t *testing.T) {
	delay := retryDelay(time.Second, 0.2)
	for range 50 {
		d := delay(1, nil, nil)
		require.GreaterOrEqual(t, d, 1600*time.Millisecond)
		require.LessOrEqual(t, d, 2400*time.Millisecond)
	}
}

func TestAsynqLoggerWritesThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	l := asynqLogger{logger: zerolog.New(&buf)}
	l.Info("worker ", "ready")
	l.Warn("slow")
	require.Contains(t, buf.String(), `"message":"worker ready"`)
	require.Contains(t, buf.String(), `"level":"warn"`)
}
