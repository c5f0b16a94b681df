package kafka

import (
	"encoding/json"
	"testing"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageForKeysByRunID(t *testing.T) {
	event := NewEvent(EventTrainingCompleted, "training-service", map[string]interface{}{"run_id": "run-42"})
	msg, err := messageFor(event)
	require.NoError(t, err)

	assert.Equal(t, "run-42", string(msg.Key))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "event-type", msg.Headers[0].Key)
	assert.Equal(t, EventTrainingCompleted, string(msg.Headers[0].Value))

	var decoded models.Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, "1", decoded.Metadata["schema_version"])
	assert.Equal(t, "run-42", decoded.Data["run_id"])
}

func TestMessageForFallsBackToEventID(t *testing.T) {
	event := NewEvent(EventTrainingFailed, "training-service", map[string]interface{}{"error": "boom"})
	msg, err := messageFor(event)
	require.NoError(t, err)
	assert.Equal(t, event.ID, string(msg.Key))
}

func TestMessageForRejectsUnencodableData(t *testing.T) {
	event := NewEvent(EventTrainingFailed, "training-service", map[string]interface{}{"ch": make(chan int)})
	_, err := messageFor(event)
	assert.Error(t, err)
}
