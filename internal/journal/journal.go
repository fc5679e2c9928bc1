// Package journal appends one hash-chained JSON line per clone or verify run.
//
// Each record carries the hash of its predecessor, so an edited or dropped
// line breaks the chain and VerifyChain reports where.
package journal

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jvs-project/treeclone/pkg/errclass"
	"github.com/jvs-project/treeclone/pkg/model"
)

// NewRunID returns a fresh identifier for one run.
func NewRunID() string {
	return uuid.NewString()
}

// Appender appends records to a JSONL file.
type Appender struct {
	path string
	mu   sync.Mutex
}

// NewAppender creates an Appender for the journal at path.
func NewAppender(path string) *Appender {
	return &Appender{path: path}
}

// Path returns the journal file path.
func (a *Appender) Path() string {
	return a.path
}

// Append chains rec onto the journal and returns the stored record.
// A zero Timestamp or RunID is filled in.
func (a *Appender) Append(rec model.JournalRecord) (*model.JournalRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(a.path), 0755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	file, err := os.OpenFile(a.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	// Other processes append to the same file.
	if err := lockFile(file); err != nil {
		return nil, fmt.Errorf("lock journal: %w", err)
	}
	defer unlockFile(file)

	prevHash, err := lastRecordHash(file)
	if err != nil {
		return nil, err
	}

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if rec.RunID == "" {
		rec.RunID = NewRunID()
	}
	rec.PrevHash = prevHash
	rec.RecordHash, err = recordHash(rec)
	if err != nil {
		return nil, err
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal journal record: %w", err)
	}
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return nil, fmt.Errorf("seek to end: %w", err)
	}
	if _, err := file.Write(append(line, '\n')); err != nil {
		return nil, fmt.Errorf("write journal record: %w", err)
	}
	if err := file.Sync(); err != nil {
		return nil, fmt.Errorf("sync journal: %w", err)
	}
	return &rec, nil
}

// lastRecordHash scans r from the start; malformed lines are skipped.
func lastRecordHash(r io.ReadSeeker) (model.HashValue, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("seek to start: %w", err)
	}
	var last model.HashValue
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var rec model.JournalRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		last = rec.RecordHash
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan journal: %w", err)
	}
	return last, nil
}

// recordHash hashes rec without its own RecordHash. The record is first
// decoded into a generic map so keys are encoded in sorted order.
func recordHash(rec model.JournalRecord) (model.HashValue, error) {
	rec.RecordHash = ""
	raw, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal for hash: %w", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("normalize for hash: %w", err)
	}
	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("marshal for hash: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return model.HashValue(hex.EncodeToString(sum[:])), nil
}

// Read returns every record in the journal at path. A missing journal is empty.
func Read(path string) ([]model.JournalRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	var records []model.JournalRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		var rec model.JournalRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, errclass.ErrJournalBroken.WithMessagef("line %d: %v", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan journal: %w", err)
	}
	return records, nil
}

// VerifyChain checks every record's hash and its link to the previous one.
// It returns the number of records checked.
func VerifyChain(path string) (int, error) {
	records, err := Read(path)
	if err != nil {
		return 0, err
	}
	var prev model.HashValue
	for i, rec := range records {
		if rec.PrevHash != prev {
			return i, errclass.ErrJournalBroken.WithMessagef("record %d: previous hash does not match", i+1)
		}
		want, err := recordHash(rec)
		if err != nil {
			return i, err
		}
		if rec.RecordHash != want {
			return i, errclass.ErrJournalBroken.WithMessagef("record %d: content does not match its hash", i+1)
		}
		prev = rec.RecordHash
	}
	return len(records), nil
}
