package codec

import (
	"encoding/binary"
	"fmt"
)

// NewBinaryCodec creates a new codec using a custom binary format
// optimized for speed and efficiency
func NewBinaryCodec() ICodec {
	return &binaryCodecImpl{}
}

// binaryCodecImpl implements ICodec using a custom binary format
type binaryCodecImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasOwner      byte = 1 << 0
	hasIndex      byte = 1 << 1
	hasModifiedAt byte = 1 << 2
	hasPayload    byte = 1 << 3
)

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.ICodec)
// --------------------------------------------------------------------------

func (c binaryCodecImpl) Encode(rec Record) ([]byte, error) {
	// Calculate total size needed
	totalSize := c.sizeBytes(rec)
	result := make([]byte, totalSize)

	// Write record kind
	result[0] = byte(rec.Kind)

	var flags byte = 0

	// Start after Kind and flags
	pos := 2

	// Handle Owner
	if rec.Owner != "" {
		flags |= hasOwner
		ownerBytes := []byte(rec.Owner)
		ownerLen := len(ownerBytes)

		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(ownerLen))
		pos += 4

		copy(result[pos:pos+ownerLen], ownerBytes)
		pos += ownerLen
	}

	// Handle Index
	if rec.Index > 0 {
		flags |= hasIndex
		binary.BigEndian.PutUint64(result[pos:pos+8], rec.Index)
		pos += 8
	}

	// Handle ModifiedAt
	if rec.ModifiedAt > 0 {
		flags |= hasModifiedAt
		binary.BigEndian.PutUint64(result[pos:pos+8], rec.ModifiedAt)
		pos += 8
	}

	// Handle Payload
	if rec.Payload != nil {
		flags |= hasPayload
		payloadLen := len(rec.Payload)

		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(payloadLen))
		pos += 4

		if payloadLen > 0 {
			copy(result[pos:pos+payloadLen], rec.Payload)
			pos += payloadLen
		}
	}

	// Set flags byte after knowing which fields are present
	result[1] = flags

	return result, nil
}

func (c binaryCodecImpl) Decode(data []byte, rec *Record) error {
	// Check minimum size (Kind + flags)
	if len(data) < 2 {
		return fmt.Errorf("data too short for record header")
	}

	rec.Kind = RecordKind(data[0])

	flags := data[1]

	pos := 2

	// Read Owner if present
	if flags&hasOwner != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for owner length")
		}

		ownerLen := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		if pos+int(ownerLen) > len(data) {
			return fmt.Errorf("data too short for owner data")
		}

		rec.Owner = string(data[pos : pos+int(ownerLen)])
		pos += int(ownerLen)
	} else {
		rec.Owner = ""
	}

	// Read Index if present
	if flags&hasIndex != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for index")
		}

		rec.Index = binary.BigEndian.Uint64(data[pos : pos+8])
		pos += 8
	} else {
		rec.Index = 0
	}

	// Read ModifiedAt if present
	if flags&hasModifiedAt != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for modification time")
		}

		rec.ModifiedAt = binary.BigEndian.Uint64(data[pos : pos+8])
		pos += 8
	} else {
		rec.ModifiedAt = 0
	}

	// Read Payload if present
	if flags&hasPayload != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for payload length")
		}

		payloadLen := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		if pos+int(payloadLen) > len(data) {
			return fmt.Errorf("data too short for payload data")
		}

		// Allocate only if needed
		if rec.Payload == nil || cap(rec.Payload) < int(payloadLen) {
			rec.Payload = make([]byte, payloadLen)
		} else {
			rec.Payload = rec.Payload[:payloadLen]
		}

		if payloadLen > 0 {
			copy(rec.Payload, data[pos:pos+int(payloadLen)])
		}
		pos += int(payloadLen)
	} else {
		rec.Payload = nil
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for encoding
func (c binaryCodecImpl) sizeBytes(rec Record) int {
	// 1 byte for Kind + 1 byte for flags
	size := 2

	if rec.Owner != "" {
		size += 4 + len(rec.Owner) // 4 bytes for length + owner string
	}
	if rec.Index > 0 {
		size += 8 // uint64
	}
	if rec.ModifiedAt > 0 {
		size += 8 // uint64
	}
	if rec.Payload != nil {
		size += 4 + len(rec.Payload) // 4 bytes for length + payload bytes
	}

	return size
}
