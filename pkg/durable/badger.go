// Badger-backed journal implementation
package durable

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// JournalOptions configures a Badger-backed journal
type JournalOptions struct {
	// Path is the directory for BadgerDB files. Required unless InMemory.
	Path string

	// InMemory uses an in-memory BadgerDB (for testing)
	InMemory bool

	// SessionID scopes the journal to one conversation; entries of other
	// sessions in the same database are invisible. A random ID is
	// generated when empty.
	SessionID string

	// SyncWrites makes every append durable before Persist returns.
	// Record-before-return is only crash-safe with this on. Default: true.
	SyncWrites *bool

	// Logger for journal operations. Default: slog.Default().
	Logger *slog.Logger
}

// BadgerJournal is an append-only journal stored in BadgerDB. On open it
// counts the entries recorded by a previous run; replay walks them in
// order, and the journal turns live once the cursor passes the last one.
//
// A journal instance is single-writer and is not safe for concurrent use,
// matching the ownership model of the stream that writes it.
type BadgerJournal struct {
	db      *badger.DB
	session string
	logger  *slog.Logger

	next   uint64 // replay cursor and next sequence number
	count  uint64 // entries recorded by the previous run
	closed bool
}

// journalEntry is the stored form of one recorded call
type journalEntry struct {
	Function string          `json:"function"`
	Output   json.RawMessage `json:"output"`
}

// OpenBadgerJournal opens (or creates) the journal for one session
func OpenBadgerJournal(opts JournalOptions) (*BadgerJournal, error) {
	badgerOpts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	syncWrites := true
	if opts.SyncWrites != nil {
		syncWrites = *opts.SyncWrites
	}
	badgerOpts = badgerOpts.WithSyncWrites(syncWrites && !opts.InMemory)
	badgerOpts = badgerOpts.WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}

	session := opts.SessionID
	if session == "" {
		session = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	j := &BadgerJournal{db: db, session: session, logger: logger}
	if err := j.initCount(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("scan journal entries: %w", err)
	}
	logger.Debug("journal opened", "session", session, "recorded_entries", j.count)
	return j, nil
}

// initCount scans for the highest existing sequence number
func (j *BadgerJournal) initCount() error {
	prefix := j.keyPrefix()
	return j.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()

		var count uint64
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			var seq uint64
			if _, err := fmt.Sscanf(string(key[len(prefix):]), "%016d", &seq); err == nil && seq+1 > count {
				count = seq + 1
			}
		}
		j.count = count
		return nil
	})
}

func (j *BadgerJournal) keyPrefix() []byte {
	return []byte(fmt.Sprintf("oplog:%s:", j.session))
}

func (j *BadgerJournal) entryKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("oplog:%s:%016d", j.session, seq))
}

// SessionID returns the session this journal is scoped to
func (j *BadgerJournal) SessionID() string { return j.session }

// IsLive reports whether the recorded entries have been exhausted
func (j *BadgerJournal) IsLive() bool {
	return j.next >= j.count
}

// Persist appends the output of one call. It is an error to persist while
// recorded entries remain unconsumed: that would interleave a new attempt
// into the middle of the previous one.
func (j *BadgerJournal) Persist(function string, output any) error {
	if j.closed {
		return ErrJournalClosed
	}
	if !j.IsLive() {
		return fmt.Errorf("%w: persist before replay finished", ErrJournalMismatch)
	}

	raw, err := json.Marshal(output)
	if err != nil {
		return fmt.Errorf("encode journal entry for %s: %w", function, err)
	}
	data, err := json.Marshal(journalEntry{Function: function, Output: raw})
	if err != nil {
		return fmt.Errorf("encode journal entry for %s: %w", function, err)
	}

	seq := j.next
	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(j.entryKey(seq), data)
	})
	if err != nil {
		return fmt.Errorf("append journal entry %d: %w", seq, err)
	}
	j.next++
	j.count = j.next
	return nil
}

// Replay decodes the next recorded entry into output
func (j *BadgerJournal) Replay(function string, output any) (bool, error) {
	if j.closed {
		return false, ErrJournalClosed
	}
	if j.IsLive() {
		return false, nil
	}

	var entry journalEntry
	err := j.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(j.entryKey(j.next))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		return false, fmt.Errorf("read journal entry %d: %w", j.next, err)
	}

	if entry.Function != function {
		return false, fmt.Errorf("%w: recorded %q, replaying %q", ErrJournalMismatch, entry.Function, function)
	}
	if err := json.Unmarshal(entry.Output, output); err != nil {
		return false, fmt.Errorf("decode journal entry %d: %w", j.next, err)
	}
	j.next++
	return true, nil
}

// Close releases the database
func (j *BadgerJournal) Close() error {
	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}
