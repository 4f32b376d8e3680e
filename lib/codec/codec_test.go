package codec

import (
	"reflect"
	"testing"
)

// testCodecs is a map of codec name to factory function
var testCodecs = map[string]func() ICodec{
	"JSON":   NewJSONCodec,
	"GOB":    NewGOBCodec,
	"Binary": NewBinaryCodec,
}

// testRecords creates a set of test records with different fields filled
func testRecords() []Record {
	return []Record{
		// Bare record with just a kind
		{Kind: KindVaultDirectory},

		// Directory record
		{
			Kind:    KindVaultDirectory,
			Owner:   "owner-1",
			Payload: []byte("directory-bytes"),
		},

		// Chunk record with index
		{
			Kind:       KindChunk,
			Owner:      "owner-1",
			Index:      3,
			ModifiedAt: 1_700_000_000,
			Payload:    []byte("chunk-bytes"),
		},

		// Session record with all fields filled
		{
			Kind:       KindRecoverySession,
			Owner:      "owner-2",
			Index:      42,
			ModifiedAt: 1_700_000_123,
			Payload:    []byte("session-bytes"),
		},
	}
}

// TestCodecRoundTrip tests that records can be encoded and decoded correctly
func TestCodecRoundTrip(t *testing.T) {
	records := testRecords()

	for name, factory := range testCodecs {
		t.Run(name, func(t *testing.T) {
			c := factory()

			for i, rec := range records {
				data, err := c.Encode(rec)
				if err != nil {
					t.Errorf("Failed to encode record %d: %v", i, err)
					continue
				}

				var result Record
				err = c.Decode(data, &result)
				if err != nil {
					t.Errorf("Failed to decode record %d: %v", i, err)
					continue
				}

				if !reflect.DeepEqual(rec, result) {
					t.Errorf("Record %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, rec, result)
				}
			}
		})
	}
}

// TestBinaryCodecSpecific tests specific edge cases for the binary codec
func TestBinaryCodecSpecific(t *testing.T) {
	c := NewBinaryCodec()

	testCases := []struct {
		name string
		rec  Record
	}{
		{
			name: "Empty record",
			rec:  Record{},
		},
		{
			name: "Record with empty strings and zero values",
			rec: Record{
				Kind:       KindChunk,
				Owner:      "",
				Index:      0,
				ModifiedAt: 0,
				Payload:    []byte{},
			},
		},
		{
			name: "Record with empty payload slice but not nil",
			rec: Record{
				Kind:    KindEmergencySwitch,
				Owner:   "owner",
				Payload: []byte{},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := c.Encode(tc.rec)
			if err != nil {
				t.Fatalf("Failed to encode: %v", err)
			}

			var result Record
			err = c.Decode(data, &result)
			if err != nil {
				t.Fatalf("Failed to decode: %v", err)
			}

			if tc.rec.Kind != result.Kind {
				t.Errorf("Kind mismatch: expected %v, got %v", tc.rec.Kind, result.Kind)
			}
			if tc.rec.Owner != result.Owner {
				t.Errorf("Owner mismatch: expected '%s', got '%s'", tc.rec.Owner, result.Owner)
			}
			if tc.rec.Index != result.Index {
				t.Errorf("Index mismatch: expected %d, got %d", tc.rec.Index, result.Index)
			}
			if tc.rec.ModifiedAt != result.ModifiedAt {
				t.Errorf("ModifiedAt mismatch: expected %d, got %d", tc.rec.ModifiedAt, result.ModifiedAt)
			}

			if (tc.rec.Payload == nil) != (result.Payload == nil) {
				t.Errorf("Payload nil/non-nil mismatch: expected %v, got %v", tc.rec.Payload, result.Payload)
			} else if len(tc.rec.Payload) != len(result.Payload) {
				t.Errorf("Payload length mismatch: expected %d, got %d", len(tc.rec.Payload), len(result.Payload))
			}
		})
	}
}

// TestInvalidBinaryData tests how the binary codec handles corrupt data
func TestInvalidBinaryData(t *testing.T) {
	c := NewBinaryCodec()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Too short header",
			data:        []byte{1}, // Only kind, no flags
			expectError: true,
		},
		{
			name:        "Valid header only",
			data:        []byte{1, 0}, // Kind 1, no flags
			expectError: false,
		},
		{
			name:        "Invalid length for owner",
			data:        []byte{1, 1, 0, 0, 0, 5, 'a', 'b', 'c'}, // Claims owner length 5 but only 3 bytes provided
			expectError: true,
		},
		{
			name:        "Invalid length for payload",
			data:        []byte{1, 8, 0, 0, 0, 10}, // Claims payload length 10 but no bytes provided
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var rec Record
			err := c.Decode(tc.data, &rec)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}

// TestEntityPayloadRoundTrip tests the gob entity helpers
func TestEntityPayloadRoundTrip(t *testing.T) {
	type entity struct {
		Name  string
		Count uint32
		Data  []byte
	}

	in := entity{Name: "vault", Count: 7, Data: []byte{1, 2, 3}}

	b, err := MarshalEntity(in)
	if err != nil {
		t.Fatalf("MarshalEntity failed: %v", err)
	}

	var out entity
	if err := UnmarshalEntity(b, &out); err != nil {
		t.Fatalf("UnmarshalEntity failed: %v", err)
	}

	if !reflect.DeepEqual(in, out) {
		t.Errorf("Entity doesn't match after round trip:\nOriginal: %+v\nResult: %+v", in, out)
	}
}
