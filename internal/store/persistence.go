package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// StateKey is the default key of the persisted snapshot.
const StateKey = "gp-app-store"

// Persistence loads and saves whole-state snapshots. Load reports false when
// nothing was saved yet.
type Persistence interface {
	Load() (AppState, bool, error)
	Save(AppState) error
}

// Encode serializes a snapshot.
func Encode(state AppState) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}

// Decode reads a snapshot over the default state, so fields missing from data
// keep their default values.
func Decode(data []byte) (AppState, error) {
	state := DefaultState()
	if err := json.Unmarshal(data, &state); err != nil {
		return AppState{}, fmt.Errorf("decode state: %w", err)
	}
	return state, nil
}

// MemoryPersistence keeps the encoded snapshot in memory.
type MemoryPersistence struct {
	mu   sync.Mutex
	data []byte
}

func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{}
}

func (m *MemoryPersistence) Load() (AppState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return AppState{}, false, nil
	}
	state, err := Decode(m.data)
	if err != nil {
		return AppState{}, false, err
	}
	return state, true, nil
}

func (m *MemoryPersistence) Save(state AppState) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data = data
	m.mu.Unlock()
	return nil
}

// Bytes returns the last saved snapshot.
func (m *MemoryPersistence) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

// FilePersistence stores the snapshot in a JSON file.
type FilePersistence struct {
	Path string
}

func (f FilePersistence) Load() (AppState, bool, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return AppState{}, false, nil
	}
	if err != nil {
		return AppState{}, false, fmt.Errorf("read state file: %w", err)
	}
	state, err := Decode(data)
	if err != nil {
		return AppState{}, false, err
	}
	return state, true, nil
}

func (f FilePersistence) Save(state AppState) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// KVPersistence stores the snapshot as one row of the kv_store table.
type KVPersistence struct {
	db  *sql.DB
	key string
}

// NewKVPersistence uses key, or StateKey when key is empty.
func NewKVPersistence(db *sql.DB, key string) *KVPersistence {
	if key == "" {
		key = StateKey
	}
	return &KVPersistence{db: db, key: key}
}

func (k *KVPersistence) Load() (AppState, bool, error) {
	var value string
	err := k.db.QueryRow(`SELECT value FROM kv_store WHERE key = ?`, k.key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return AppState{}, false, nil
	}
	if err != nil {
		return AppState{}, false, fmt.Errorf("read state row: %w", err)
	}
	state, err := Decode([]byte(value))
	if err != nil {
		return AppState{}, false, err
	}
	return state, true, nil
}

func (k *KVPersistence) Save(state AppState) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}
	_, err = k.db.Exec(`
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, k.key, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("write state row: %w", err)
	}
	return nil
}
