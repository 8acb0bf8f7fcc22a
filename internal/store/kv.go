package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// KV is the persistent key-value store backing session and cached server config.
// It is safe for concurrent use.
type KV struct {
	mu sync.Mutex
	db *sql.DB
}

func (s Store) OpenKV(ctx context.Context) (*KV, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	return &KV{db: db}, nil
}

func (kv *KV) Close() error {
	if kv == nil || kv.db == nil {
		return nil
	}
	return kv.db.Close()
}

// Get returns the value for k and whether it was present.
func (kv *KV) Get(ctx context.Context, k string) (string, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	var v string
	err := kv.db.QueryRowContext(ctx, `SELECT v FROM state_meta WHERE k = ?`, k).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (kv *KV) Set(ctx context.Context, k, v string) error {
	k = strings.TrimSpace(k)
	if k == "" {
		return errors.New("empty key")
	}
	kv.mu.Lock()
	defer kv.mu.Unlock()
	_, err := kv.db.ExecContext(ctx, `INSERT OR REPLACE INTO state_meta(k, v, updated_at) VALUES(?, ?, ?)`, k, v, time.Now().Unix())
	return err
}

// SetMany writes all pairs in one transaction.
func (kv *KV) SetMany(ctx context.Context, pairs map[string]string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	tx, err := kv.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().Unix()
	for k, v := range pairs {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO state_meta(k, v, updated_at) VALUES(?, ?, ?)`, k, v, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (kv *KV) Delete(ctx context.Context, keys ...string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	for _, k := range keys {
		if _, err := kv.db.ExecContext(ctx, `DELETE FROM state_meta WHERE k = ?`, k); err != nil {
			return err
		}
	}
	return nil
}

func (kv *KV) Keys(ctx context.Context) ([]string, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	rows, err := kv.db.QueryContext(ctx, `SELECT k FROM state_meta`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func (kv *KV) GetJSON(ctx context.Context, k string, dst any) (bool, error) {
	v, ok, err := kv.Get(ctx, k)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(v), dst); err != nil {
		return false, err
	}
	return true, nil
}

func (kv *KV) SetJSON(ctx context.Context, k string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return kv.Set(ctx, k, string(b))
}
