// Package storage persists committed settlement events so restarts and
// auditors can replay what the node settled.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/swapcover/swapcover/pkg/settle"
)

// EventRecord is one persisted settlement event.
type EventRecord struct {
	Seq        uint64            `json:"seq"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	At         int64             `json:"at"` // unix milliseconds
}

// EventLog is a pebble-backed append-only log of settlement events. It
// implements settle.Sink, so registering it with the event recorder persists
// every committed event in order.
type EventLog struct {
	mu  sync.Mutex
	db  *pebble.DB
	seq uint64
}

// keys: e:<8-byte big-endian seq>
func eventKey(seq uint64) []byte {
	key := make([]byte, 2+8)
	copy(key, "e:")
	binary.BigEndian.PutUint64(key[2:], seq)
	return key
}

// OpenEventLog opens or creates the log at path and resumes the sequence
// counter from the last persisted record.
func OpenEventLog(path string) (*EventLog, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	l := &EventLog{db: db}

	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: eventKey(0),
		UpperBound: eventKey(^uint64(0)),
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	if iter.Last() && iter.Valid() {
		l.seq = binary.BigEndian.Uint64(iter.Key()[2:]) + 1
	}
	if err := iter.Close(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *EventLog) Close() error { return l.db.Close() }

// Emit appends one event. Append failures are swallowed: the log is an
// audit trail, not part of the settlement unit of work.
func (l *EventLog) Emit(evt settle.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := EventRecord{
		Seq:        l.seq,
		Type:       evt.Type,
		Attributes: evt.Attributes,
		At:         time.Now().UnixMilli(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := l.db.Set(eventKey(rec.Seq), data, pebble.NoSync); err != nil {
		return
	}
	l.seq++
}

var _ settle.Sink = (*EventLog)(nil)

// Recent returns up to limit of the most recent events, newest first.
func (l *EventLog) Recent(limit int) ([]EventRecord, error) {
	iter, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: eventKey(0),
		UpperBound: eventKey(^uint64(0)),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []EventRecord
	for iter.Last(); iter.Valid() && len(out) < limit; iter.Prev() {
		var rec EventRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue // Skip invalid entries
		}
		out = append(out, rec)
	}
	return out, nil
}

// Len reports the number of persisted events.
func (l *EventLog) Len() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}
