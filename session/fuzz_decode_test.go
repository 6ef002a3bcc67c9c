package session

import (
	"testing"
	"time"
)

// FuzzDecodeSnapshot exercises the snapshot decoder with arbitrary inputs.
// Goal: no panics; anything accepted must re-encode.
func FuzzDecodeSnapshot(f *testing.F) {
	encoded, err := EncodeSnapshot(Snapshot{
		Token: "tok-fuzz",
		User: &User{
			ID:        "01HZX",
			Name:      "fuzz",
			Email:     "fuzz@test.com",
			Role:      "customer",
			CreatedAt: time.UnixMilli(1700000000000),
		},
	})
	if err == nil {
		f.Add(encoded)
	}

	f.Add([]byte{})
	f.Add([]byte{0})
	f.Add([]byte{CurrentSchemaVersion})
	f.Add([]byte{255, 255, 255})

	if len(encoded) > 10 {
		f.Add(encoded[:10])
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		snap, err := DecodeSnapshot(data)
		if err != nil {
			return
		}
		if _, err := EncodeSnapshot(snap); err != nil {
			t.Fatalf("re-encode of accepted snapshot failed: %v", err)
		}
	})
}
