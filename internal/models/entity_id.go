package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// PendingPrefix marks identifiers allocated client-side before the server confirms an entity.
const PendingPrefix = "tmp-"

// EntityID identifies a module or a row. It is either Persisted (a server-assigned integer)
// or Pending (a client-side token). The zero value is neither and means "no entity".
type EntityID struct {
	persisted uint
	pending   string
}

// Persisted returns the id of an entity the server has stored.
func Persisted(id uint) EntityID {
	return EntityID{persisted: id}
}

// Pending returns a temporary id. Tokens without the pending prefix get it prepended.
func Pending(token string) EntityID {
	if !strings.HasPrefix(token, PendingPrefix) {
		token = PendingPrefix + token
	}
	return EntityID{pending: token}
}

func (id EntityID) IsPending() bool {
	return id.pending != ""
}

func (id EntityID) IsPersisted() bool {
	return id.pending == "" && id.persisted != 0
}

func (id EntityID) IsZero() bool {
	return id.pending == "" && id.persisted == 0
}

// Uint returns the persisted id and true, or 0 and false for pending and zero ids.
func (id EntityID) Uint() (uint, bool) {
	if !id.IsPersisted() {
		return 0, false
	}
	return id.persisted, true
}

// Token returns the pending token, or "" for persisted ids.
func (id EntityID) Token() string {
	return id.pending
}

func (id EntityID) String() string {
	if id.pending != "" {
		return id.pending
	}
	return strconv.FormatUint(uint64(id.persisted), 10)
}

// ParseEntityID accepts either a decimal persisted id or a pending token.
func ParseEntityID(s string) (EntityID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return EntityID{}, fmt.Errorf("empty entity id")
	}
	if strings.HasPrefix(s, PendingPrefix) {
		if len(s) == len(PendingPrefix) {
			return EntityID{}, fmt.Errorf("pending id %q has no token", s)
		}
		return EntityID{pending: s}, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return EntityID{}, fmt.Errorf("invalid entity id %q: %w", s, err)
	}
	return Persisted(uint(n)), nil
}

// MarshalJSON writes persisted ids as numbers and pending ids as strings.
func (id EntityID) MarshalJSON() ([]byte, error) {
	if id.pending != "" {
		return json.Marshal(id.pending)
	}
	return []byte(strconv.FormatUint(uint64(id.persisted), 10)), nil
}

func (id *EntityID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = EntityID{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" || s == "0" {
			*id = EntityID{}
			return nil
		}
		parsed, err := ParseEntityID(s)
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	}
	var n uint
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid entity id %s: %w", data, err)
	}
	*id = Persisted(n)
	return nil
}
