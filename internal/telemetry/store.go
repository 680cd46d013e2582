// Package telemetry serves the robot status to operators and keeps a
// persistent per-match log in BoltDB.
package telemetry

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"BeaconBot/internal/model"
)

var (
	bucketMatches = []byte("matches")
	bucketEntries = []byte("entries")
)

var (
	// ErrNoMatch is returned when a match id is unknown.
	ErrNoMatch = errors.New("telemetry: no such match")
	// ErrQueueFull is returned when the writer falls behind and an entry is dropped.
	ErrQueueFull = errors.New("telemetry: match log queue full")
	// ErrClosed is returned by appends after Close.
	ErrClosed = errors.New("telemetry: match log closed")
)

const (
	queueSize     = 1024
	maxBatch      = 256
	flushInterval = 250 * time.Millisecond
)

// Entry kinds.
const (
	KindStatus = "status"
	KindLog    = "log"
)

// Match describes one recorded match.
type Match struct {
	ID       uint64              `json:"id"`
	Alliance model.AllianceColor `json:"alliance"`
	Started  time.Time           `json:"started"`
}

// Entry is one record of a match log.
type Entry struct {
	Seq    uint64        `json:"seq"`
	Time   time.Time     `json:"time"`
	Kind   string        `json:"kind"`
	Status *model.Status `json:"status,omitempty"`
	Line   string        `json:"line,omitempty"`
}

// Store is the match log. Entries are grouped per match in nested buckets.
// Appends never touch the disk: a writer goroutine commits them in batches so
// the control loop is not held up by fsync.
type Store struct {
	db *bbolt.DB

	mu      sync.Mutex
	current uint64

	queue     chan queued
	flush     chan chan struct{}
	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type queued struct {
	match uint64
	entry Entry
}

// OpenStore opens (or creates) the database at path.
func OpenStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	db, err := bbolt.Open(path, 0o666, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open match log: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketMatches); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &Store{
		db:    db,
		queue: make(chan queued, queueSize),
		flush: make(chan chan struct{}),
		stop:  make(chan struct{}),
	}
	s.wg.Add(1)
	go s.writeLoop()
	return s, nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// BeginMatch registers a new match and makes it the target of Append.
func (s *Store) BeginMatch(alliance model.AllianceColor) (uint64, error) {
	var id uint64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		matches := tx.Bucket(bucketMatches)
		seq, err := matches.NextSequence()
		if err != nil {
			return err
		}
		id = seq
		b, err := json.Marshal(Match{ID: id, Alliance: alliance, Started: time.Now()})
		if err != nil {
			return err
		}
		if err := matches.Put(itob(id), b); err != nil {
			return err
		}
		_, err = tx.Bucket(bucketEntries).CreateBucket(itob(id))
		return err
	})
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.current = id
	s.mu.Unlock()
	return id, nil
}

// Current returns the match receiving entries, or 0 before the first match.
func (s *Store) Current() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// AppendStatus records a status snapshot in the current match.
func (s *Store) AppendStatus(st model.Status) error {
	return s.append(Entry{Time: st.Time, Kind: KindStatus, Status: &st})
}

// AppendLog records a log line in the current match.
func (s *Store) AppendLog(line string) error {
	return s.append(Entry{Time: time.Now(), Kind: KindLog, Line: line})
}

func (s *Store) append(e Entry) error {
	id := s.Current()
	if id == 0 {
		return ErrNoMatch
	}
	select {
	case <-s.stop:
		return ErrClosed
	default:
	}
	select {
	case s.queue <- queued{match: id, entry: e}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *Store) writeLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	var batch []queued
	commit := func() {
		if len(batch) > 0 {
			_ = s.write(batch)
			batch = batch[:0]
		}
	}
	drain := func() {
		for {
			select {
			case q := <-s.queue:
				batch = append(batch, q)
			default:
				return
			}
		}
	}

	for {
		select {
		case q := <-s.queue:
			batch = append(batch, q)
			if len(batch) >= maxBatch {
				commit()
			}
		case <-ticker.C:
			commit()
		case done := <-s.flush:
			drain()
			commit()
			close(done)
		case <-s.stop:
			drain()
			commit()
			return
		}
	}
}

// write commits a batch in one transaction. Entries of unknown matches are skipped.
func (s *Store) write(batch []queued) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		entries := tx.Bucket(bucketEntries)
		for _, q := range batch {
			b := entries.Bucket(itob(q.match))
			if b == nil {
				continue
			}
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			e := q.entry
			e.Seq = seq
			v, err := json.Marshal(e)
			if err != nil {
				return err
			}
			if err := b.Put(itob(seq), v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Flush blocks until every entry appended so far is committed.
func (s *Store) Flush() {
	done := make(chan struct{})
	select {
	case s.flush <- done:
		<-done
	case <-s.stop:
	}
}

// Entries returns every entry of a match in order.
func (s *Store) Entries(match uint64) ([]Entry, error) {
	s.Flush()
	var out []Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries).Bucket(itob(match))
		if b == nil {
			return ErrNoMatch
		}
		return b.ForEach(func(_, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			out = append(out, e)
			return nil
		})
	})
	return out, err
}

// Matches lists recorded matches, oldest first.
func (s *Store) Matches() ([]Match, error) {
	var out []Match
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMatches).ForEach(func(_, v []byte) error {
			var m Match
			if err := json.Unmarshal(v, &m); err != nil {
				return err
			}
			out = append(out, m)
			return nil
		})
	})
	return out, err
}

// Close commits pending entries and closes the database. Safe to call more than once.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// LogWriter returns an io.Writer that appends each written line to the
// current match. Lines that cannot be stored (before the first match, or
// after Close) are dropped so logging itself never fails.
func (s *Store) LogWriter() *LogWriter {
	return &LogWriter{store: s}
}

// LogWriter tees logger output into the match log.
type LogWriter struct {
	store *Store
}

func (w *LogWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line != "" {
			_ = w.store.AppendLog(line)
		}
	}
	return len(p), nil
}
