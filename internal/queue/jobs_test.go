package queue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	data, err := Encode(KindProcessFile, ProcessFilePayload{FileID: "f1"})
	require.NoError(t, err)

	env, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, KindProcessFile, env.Job)

	var payload ProcessFilePayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "f1", payload.FileID)
}

func TestDecodeUnknownKind(t *testing.T) {
	_, err := Decode([]byte(`{"job":"file:shred","payload":{}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown job kind")
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestKindValid(t *testing.T) {
	assert.True(t, KindProcessFile.Valid())
	assert.True(t, KindSendWelcomeEmail.Valid())
	assert.False(t, Kind("file:shred").Valid())
	assert.False(t, Kind("").Valid())
}
