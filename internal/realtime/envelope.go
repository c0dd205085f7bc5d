// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ludora Contributors

package realtime

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// Local lifecycle events delivered through the same subscription surface as
// lobby updates.
const (
	EventConnect         = "connect"
	EventDisconnect      = "disconnect"
	EventReconnectFailed = "reconnect_failed"
)

// EventLobbyUpdate is the generic inbound event name; every inbound message
// also fires EventLobbyUpdate + ":" + its declared type.
const EventLobbyUpdate = "lobby:update"

// LobbyChannel is the single fixed broadcast channel joined on connect.
const LobbyChannel = "lobby:updates"

// Well-known lobby update types. Payload shapes are owned by the server;
// the client routes them opaquely.
const (
	UpdateParticipantJoined = "participant_joined"
	UpdateParticipantLeft   = "participant_left"
	UpdateStatusChanged     = "status_changed"
	UpdateGameState         = "game_state"
)

// Envelope is the inbound message envelope. Data stays opaque; the client
// only routes by Type.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
	// Timestamp is epoch milliseconds assigned by the server.
	Timestamp int64 `json:"timestamp,omitempty"`
}

// envelopeShape mirrors Envelope for schema generation; json.RawMessage does
// not reflect to a useful schema type.
type envelopeShape struct {
	Type      string         `json:"type" jsonschema:"minLength=1"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp int64          `json:"timestamp,omitempty"`
}

// Compiled schema cache. Read loops of concurrent clients decode in their
// own goroutines, so the compile is guarded by a Once.
var (
	schemaOnce  sync.Once
	schemaCache *jschema.Schema
	schemaErr   error
)

// GenerateEnvelopeSchema generates the JSON Schema for the message envelope.
// Servers may attach fields the client does not know about, so the envelope
// must tolerate additional top-level properties.
func GenerateEnvelopeSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}
	schema := r.Reflect(&envelopeShape{})
	schema.Title = "Ludora Lobby Envelope"
	schema.Description = "Schema for inbound realtime lobby messages"

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, oops.Code("REALTIME_SCHEMA_MARSHAL_FAILED").Wrap(err)
	}
	return data, nil
}

// compiledEnvelopeSchema returns the compiled schema, compiling it on first
// use.
func compiledEnvelopeSchema() (*jschema.Schema, error) {
	schemaOnce.Do(func() {
		schemaCache, schemaErr = compileEnvelopeSchema()
	})
	return schemaCache, schemaErr
}

func compileEnvelopeSchema() (*jschema.Schema, error) {
	schemaBytes, err := GenerateEnvelopeSchema()
	if err != nil {
		return nil, err
	}

	var schemaData any
	if err := json.Unmarshal(schemaBytes, &schemaData); err != nil {
		return nil, oops.Code("REALTIME_SCHEMA_PARSE_FAILED").Wrap(err)
	}

	c := jschema.NewCompiler()
	if err := c.AddResource("envelope.json", schemaData); err != nil {
		return nil, oops.Code("REALTIME_SCHEMA_COMPILE_FAILED").Wrap(err)
	}
	sch, err := c.Compile("envelope.json")
	if err != nil {
		return nil, oops.Code("REALTIME_SCHEMA_COMPILE_FAILED").Wrap(err)
	}
	return sch, nil
}

// decodeEnvelope validates raw bytes against the envelope schema and decodes
// them. Invalid messages are dropped by the caller, not fatal to the stream.
func decodeEnvelope(data []byte) (Envelope, error) {
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return Envelope{}, oops.Code("REALTIME_ENVELOPE_INVALID").Wrap(err)
	}

	sch, err := compiledEnvelopeSchema()
	if err != nil {
		return Envelope{}, err
	}
	if err := sch.Validate(generic); err != nil {
		return Envelope{}, oops.Code("REALTIME_ENVELOPE_INVALID").Wrap(err)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, oops.Code("REALTIME_ENVELOPE_INVALID").Wrap(err)
	}
	return env, nil
}
