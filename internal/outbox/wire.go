package outbox

import (
	"encoding/binary"
	"errors"
)

// ErrInvalidFrame is returned for payloads without Confluent framing.
var ErrInvalidFrame = errors.New("invalid wire frame")

// Record headers attached to every published event.
const (
	HeaderEventType     = "event_type"
	HeaderTenantID      = "tenant_id"
	HeaderSchemaSubject = "schema_subject"
)

// EncodeWireFormat applies Confluent framing: magic byte 0, then a big-endian schema id.
func EncodeWireFormat(schemaID int, payload []byte) []byte {
	frame := make([]byte, 5+len(payload))
	frame[0] = 0
	binary.BigEndian.PutUint32(frame[1:5], uint32(schemaID))
	copy(frame[5:], payload)
	return frame
}

// DecodeWireFormat strips Confluent framing and returns the schema id and body.
func DecodeWireFormat(frame []byte) (int, []byte, error) {
	if len(frame) < 5 || frame[0] != 0 {
		return 0, nil, ErrInvalidFrame
	}
	return int(binary.BigEndian.Uint32(frame[1:5])), frame[5:], nil
}
