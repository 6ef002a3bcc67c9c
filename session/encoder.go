package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

// CurrentSchemaVersion is the leading byte written by [EncodeSnapshot].
const CurrentSchemaVersion = 2

// schemaV1 stored createdAt in unix milliseconds. It is still decoded.
const schemaV1 = 1

// ErrCorruptSnapshot is returned when persisted bytes cannot be decoded into a usable slice.
var ErrCorruptSnapshot = errors.New("corrupt session snapshot")

// EncodeSnapshot serializes a persisted slice.
//
// Layout (big endian): version byte, then token, user id, name, email, avatar and role as
// uint16 length-prefixed strings, then createdAt as int64 unix nanoseconds.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	if s.Token == "" || s.User == nil {
		return nil, errors.New("snapshot requires token and user")
	}

	var buf bytes.Buffer
	buf.WriteByte(CurrentSchemaVersion)

	for _, field := range []struct {
		name  string
		value string
	}{
		{"token", s.Token},
		{"user id", s.User.ID},
		{"name", s.User.Name},
		{"email", s.User.Email},
		{"avatar", s.User.Avatar},
		{"role", s.User.Role},
	} {
		if err := writeString(&buf, field.value); err != nil {
			return nil, fmt.Errorf("%s: %w", field.name, err)
		}
	}

	var created int64
	if !s.User.CreatedAt.IsZero() {
		created = s.User.CreatedAt.UnixNano()
	}
	if err := binary.Write(&buf, binary.BigEndian, created); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// DecodeSnapshot parses bytes produced by [EncodeSnapshot]. Any malformed input, including
// trailing data or a slice without token or user id, yields ErrCorruptSnapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if version != CurrentSchemaVersion && version != schemaV1 {
		return Snapshot{}, fmt.Errorf("%w: unsupported schema version %d", ErrCorruptSnapshot, version)
	}

	var (
		token string
		user  User
	)
	for _, dst := range []*string{&token, &user.ID, &user.Name, &user.Email, &user.Avatar, &user.Role} {
		v, err := readString(reader)
		if err != nil {
			return Snapshot{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
		}
		*dst = v
	}

	var created int64
	if err := binary.Read(reader, binary.BigEndian, &created); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	switch {
	case created == 0:
	case version == schemaV1:
		user.CreatedAt = time.UnixMilli(created).UTC()
	default:
		user.CreatedAt = time.Unix(0, created).UTC()
	}

	if reader.Len() != 0 {
		return Snapshot{}, fmt.Errorf("%w: %d trailing bytes", ErrCorruptSnapshot, reader.Len())
	}
	if token == "" || user.ID == "" {
		return Snapshot{}, fmt.Errorf("%w: missing token or user id", ErrCorruptSnapshot)
	}

	return Snapshot{Token: token, User: &user}, nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > math.MaxUint16 {
		return errors.New("value too long")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	if int(n) > r.Len() {
		return "", io.ErrUnexpectedEOF
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return "", err
	}
	return string(out), nil
}
