package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_AttachesServiceAndContextFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("picking-service", &buf).
		WithComponent("planner").
		WithRequestID("req-1").
		WithTenantID("tenant-1")

	log.Info().Int("stops", 3).Msg("plan built")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "picking-service", line["service"])
	assert.Equal(t, "planner", line["component"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "tenant-1", line["tenant_id"])
	assert.Equal(t, float64(3), line["stops"])
	assert.Equal(t, "plan built", line["message"])
}

func TestNop_WritesNothing(t *testing.T) {
	log := Nop()
	assert.NotPanics(t, func() {
		log.WithCorrelationID("c").Error().Msg("ignored")
	})
}
