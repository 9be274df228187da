package manifest

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/arkilian/telemetrygen/pkg/types"
	"github.com/spaolacci/murmur3"
)

// TableStats describes everything written to one table.
type TableStats struct {
	Rows    int64 `json:"rows"`
	FirstID int64 `json:"first_id,omitempty"`
	LastID  int64 `json:"last_id,omitempty"`

	// MinTime and MaxTime bound the table's primary timestamp column
	MinTime string `json:"min_time,omitempty"`
	MaxTime string `json:"max_time,omitempty"`

	// Fingerprint is a murmur3-128 digest over the JSON encoding of every row
	// in write order
	Fingerprint string `json:"fingerprint"`
}

// tableTracker accumulates TableStats for one table.
type tableTracker struct {
	rows    int64
	firstID int64
	lastID  int64
	minTime time.Time
	maxTime time.Time
	hash    murmur3.Hash128
	lenBuf  [8]byte
}

func newTableTracker() *tableTracker {
	return &tableTracker{hash: murmur3.New128()}
}

// update records one row. Rows are length-prefixed before hashing so
// adjacent rows cannot run together.
func (t *tableTracker) update(id int64, at time.Time, row interface{}) error {
	data, err := json.Marshal(row)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint64(t.lenBuf[:], uint64(len(data)))
	t.hash.Write(t.lenBuf[:])
	t.hash.Write(data)

	if t.rows == 0 {
		t.firstID = id
		t.minTime = at
		t.maxTime = at
	}
	t.lastID = id
	if at.Before(t.minTime) {
		t.minTime = at
	}
	if at.After(t.maxTime) {
		t.maxTime = at
	}
	t.rows++
	return nil
}

func (t *tableTracker) stats() TableStats {
	hi, lo := t.hash.Sum128()
	var sum [16]byte
	binary.BigEndian.PutUint64(sum[:8], hi)
	binary.BigEndian.PutUint64(sum[8:], lo)

	s := TableStats{
		Rows:        t.rows,
		Fingerprint: hex.EncodeToString(sum[:]),
	}
	if t.rows > 0 {
		s.FirstID = t.firstID
		s.LastID = t.lastID
		s.MinTime = types.FormatUTC(t.minTime)
		s.MaxTime = types.FormatUTC(t.maxTime)
	}
	return s
}
