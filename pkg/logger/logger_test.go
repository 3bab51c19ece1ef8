package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerStampsServiceName(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "orders-service")

	log.Info("cart updated", "cart_id", "c1")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "orders-service", line["service"])
	assert.Equal(t, "cart updated", line["msg"])
	assert.Equal(t, "c1", line["cart_id"])
}

func TestLoggerNoTraceFieldsWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "test")

	log.InfoContext(context.Background(), "no span here")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	_, hasTrace := line["trace_id"]
	assert.False(t, hasTrace)
}

func TestLoggerWithAttrsKeepsTraceHandler(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "test").With("component", "resolver")

	log.Info("resolved")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "resolver", line["component"])
	assert.Equal(t, "test", line["service"])
}
