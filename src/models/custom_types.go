package models

import (
	"fmt"
	"strconv"
	"strings"
)

// KeyLength holds the key_len column of a plan row. MySQL reports it as text,
// and index_merge plans list one length per merged index ("4,4"). Bytes is the
// largest listed length.
type KeyLength struct {
	Raw   string
	Bytes int64
}

// NewKeyLength builds a KeyLength from a single byte length.
func NewKeyLength(bytes int64) *KeyLength {
	return &KeyLength{Raw: strconv.FormatInt(bytes, 10), Bytes: bytes}
}

// Scan implements the sql.Scanner interface for KeyLength
func (k *KeyLength) Scan(value interface{}) error {
	switch v := value.(type) {
	case []uint8:
		k.parse(string(v))
	case string:
		k.parse(v)
	case int64:
		k.Raw, k.Bytes = strconv.FormatInt(v, 10), v
	case float64:
		k.Raw, k.Bytes = strconv.FormatFloat(v, 'f', -1, 64), int64(v)
	case nil:
		return fmt.Errorf("KeyLength: unexpected NULL, scan into *KeyLength instead")
	default:
		return fmt.Errorf("KeyLength: unsupported type %T", value)
	}
	return nil
}

// String returns the length as MySQL reported it.
func (k KeyLength) String() string {
	return k.Raw
}

// parse keeps unparseable parts out of Bytes but leaves Raw untouched, so a
// key length that is present but odd still counts as present.
func (k *KeyLength) parse(raw string) {
	k.Raw = raw
	k.Bytes = 0
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}
		if n > k.Bytes {
			k.Bytes = n
		}
	}
}
