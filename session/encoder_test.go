package session

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSnapshotRoundTrip(t *testing.T) {
	snap := Snapshot{Token: "tok-123", User: testUser()}

	data, err := EncodeSnapshot(snap)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if data[0] != CurrentSchemaVersion {
		t.Fatalf("expected schema byte %d, got %d", CurrentSchemaVersion, data[0])
	}

	got, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Token != snap.Token || !usersEqual(got.User, snap.User) {
		t.Fatalf("round trip mismatch: %+v vs %+v", got.User, snap.User)
	}

	s, err := Reduce(Session{}, Rehydrate{Snapshot: got})
	if err != nil {
		t.Fatalf("rehydrate: %v", err)
	}
	if !s.IsAuthenticated || s.Token != snap.Token || !usersEqual(s.User, snap.User) {
		t.Fatalf("rehydrated session mismatch: %+v", s)
	}
}

func TestSnapshotKeepsNanosecondCreatedAt(t *testing.T) {
	user := testUser()
	user.CreatedAt = time.Date(2025, 3, 14, 10, 0, 0, 123456789, time.UTC)

	data, err := EncodeSnapshot(Snapshot{Token: "tok", User: user})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.User.CreatedAt.Equal(user.CreatedAt) {
		t.Fatalf("createdAt changed: in=%s out=%s", user.CreatedAt, got.User.CreatedAt)
	}
	if !usersEqual(got.User, user) {
		t.Fatalf("user changed: %+v vs %+v", got.User, user)
	}
}

func TestDecodeSnapshotReadsMillisecondSchema(t *testing.T) {
	user := testUser()
	data, err := EncodeSnapshot(Snapshot{Token: "tok", User: user})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	legacy := append([]byte{}, data[:len(data)-8]...)
	legacy[0] = schemaV1
	legacy = binary.BigEndian.AppendUint64(legacy, uint64(user.CreatedAt.UnixMilli()))

	got, err := DecodeSnapshot(legacy)
	if err != nil {
		t.Fatalf("decode v1: %v", err)
	}
	if !usersEqual(got.User, user) {
		t.Fatalf("v1 user mismatch: %+v vs %+v", got.User, user)
	}
}

func TestSliceExcludesEphemeralState(t *testing.T) {
	if _, ok := Slice(Session{Loading: true, Attempt: 2}); ok {
		t.Fatal("anonymous session must not produce a slice")
	}

	s := authenticated("tok", testUser(), 9)
	snap, ok := Slice(s)
	if !ok || snap.Token != "tok" || snap.User == nil {
		t.Fatalf("unexpected slice: %+v ok=%v", snap, ok)
	}
}

func TestDecodeSnapshotRejectsCorruptInput(t *testing.T) {
	valid, err := EncodeSnapshot(Snapshot{Token: "tok", User: testUser()})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	cases := map[string][]byte{
		"empty":          {},
		"bad version":    {99, 0, 0},
		"truncated":      valid[:len(valid)-3],
		"trailing bytes": append(append([]byte{}, valid...), 0x01),
		"length overrun": {CurrentSchemaVersion, 0xFF, 0xFF, 'a'},
	}
	for name, data := range cases {
		if _, err := DecodeSnapshot(data); !errors.Is(err, ErrCorruptSnapshot) {
			t.Fatalf("%s: expected ErrCorruptSnapshot, got %v", name, err)
		}
	}
}

func TestEncodeSnapshotRejectsIncompleteSlice(t *testing.T) {
	if _, err := EncodeSnapshot(Snapshot{Token: "tok"}); err == nil {
		t.Fatal("expected error for missing user")
	}
	if _, err := EncodeSnapshot(Snapshot{Token: strings.Repeat("x", 70000), User: testUser()}); err == nil {
		t.Fatal("expected error for oversized token")
	}
}
