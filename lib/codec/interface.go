package codec

import (
	"bytes"
	"encoding/gob"
)

// RecordKind identifies the entity type inside a record envelope.
// Persisted, stable.
type RecordKind uint8

const (
	KindVaultDirectory   RecordKind = 1
	KindChunk            RecordKind = 2
	KindRecoveryConfig   RecordKind = 3
	KindRecoverySession  RecordKind = 4
	KindCategoryRegistry RecordKind = 5
	KindEmergencySwitch  RecordKind = 6
)

// Record is the envelope every persisted entity travels in. Owner and Index
// mirror the entity's key so a snapshot can be rebuilt from records alone.
type Record struct {
	Kind       RecordKind
	Owner      string
	Index      uint64 // chunk index or recovery request id, 0 otherwise
	ModifiedAt uint64
	Payload    []byte // gob-encoded entity
}

// ICodec is the interface for all record codecs
type ICodec interface {
	// Encode encodes a Record into a byte array
	// It returns the encoded byte array and an error if any
	Encode(rec Record) ([]byte, error)
	// Decode decodes a byte array into a Record
	// It takes a byte array and a pointer to a Record as parameters
	// It returns an error if any
	Decode(b []byte, rec *Record) error
}

// --------------------------------------------------------------------------
// Entity Payload Helpers
// --------------------------------------------------------------------------

// MarshalEntity gob-encodes an entity for use as a record payload.
func MarshalEntity(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalEntity decodes a record payload into an entity.
func UnmarshalEntity(b []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(v)
}
