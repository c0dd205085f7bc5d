// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ludora Contributors

package realtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludora/sessionkit/pkg/errutil"
)

func TestDecodeEnvelope(t *testing.T) {
	env, err := decodeEnvelope([]byte(`{"type":"status_changed","data":{"status":"live"},"timestamp":1700000000000}`))
	require.NoError(t, err)
	assert.Equal(t, UpdateStatusChanged, env.Type)
	assert.JSONEq(t, `{"status":"live"}`, string(env.Data))
	assert.Equal(t, int64(1700000000000), env.Timestamp)
}

func TestDecodeEnvelopeDataOptional(t *testing.T) {
	env, err := decodeEnvelope([]byte(`{"type":"participant_left"}`))
	require.NoError(t, err)
	assert.Equal(t, UpdateParticipantLeft, env.Type)
	assert.Nil(t, env.Data)
}

func TestDecodeEnvelopeToleratesUnknownServerFields(t *testing.T) {
	env, err := decodeEnvelope([]byte(`{"type":"status_changed","source":"server","seq":7}`))
	require.NoError(t, err)
	assert.Equal(t, UpdateStatusChanged, env.Type)
}

func TestDecodeEnvelopeConcurrentFirstUse(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			env, err := decodeEnvelope([]byte(`{"type":"game_state","data":{"round":2}}`))
			assert.NoError(t, err)
			assert.Equal(t, UpdateGameState, env.Type)
		}()
	}
	wg.Wait()
}

func TestDecodeEnvelopeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: `lobby update`},
		{name: "missing type", data: `{"data":{}}`},
		{name: "empty type", data: `{"type":""}`},
		{name: "wrong type kind", data: `{"type":42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeEnvelope([]byte(tt.data))
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "REALTIME_ENVELOPE_INVALID")
		})
	}
}
