package backup

import (
	"bytes"
	"encoding/gob"
	"time"

	"github.com/jamesainslie/scour/pkg/scour/filter"
	"github.com/jamesainslie/scour/pkg/scour/types"
)

// recordVersion is incremented when the record format changes.
const recordVersion = 1

// keyPrefix namespaces change records in the database.
const keyPrefix = "change\x00"

// Record is a stored change description.
type Record struct {
	Version   int
	Token     string
	RunID     string
	Target    types.ScanTarget
	Policy    filter.Policy
	CreatedAt time.Time
}

// Encode serializes the record using gob.
func (r *Record) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes data into the record using gob.
func (r *Record) Decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(r)
}

func makeKey(token string) []byte {
	return []byte(keyPrefix + token)
}
