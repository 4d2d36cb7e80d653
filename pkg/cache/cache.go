// Package cache は読み取り専用データのキャッシュを提供する。
//
// 本番ではRedisを使い、Redisが設定されていない環境ではキャッシュを無効にする。
// キャッシュの失敗は呼び出し元で無視し、常に正本のデータベースへフォールバックする。
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrMiss はキーが存在しないことを表す。
var ErrMiss = errors.New("cache miss")

// Cache はバイト列を保持するキャッシュ。
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// GetJSON はキーの値をdstにデシリアライズする。存在しない場合はErrMissを返す。
func GetJSON(ctx context.Context, c Cache, key string, dst any) error {
	b, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("キャッシュ値のデシリアライズに失敗: %w", err)
	}
	return nil
}

// SetJSON は値をJSONにシリアライズして保存する。
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("キャッシュ値のシリアライズに失敗: %w", err)
	}
	return c.Set(ctx, key, b, ttl)
}

// Nop は何も保持しないキャッシュ。Getは常にErrMissを返す。
type Nop struct{}

// Get は常にErrMissを返す。
func (Nop) Get(context.Context, string) ([]byte, error) { return nil, ErrMiss }

// Set は何もしない。
func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }

// Delete は何もしない。
func (Nop) Delete(context.Context, ...string) error { return nil }

// Memory はプロセス内のキャッシュ。テストと単一プロセス構成で使用する。
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemory は新しいMemoryキャッシュを生成する。
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get はキーの値を返す。期限切れのエントリはErrMissとして扱い削除する。
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, ErrMiss
	}
	return append([]byte(nil), e.value...), nil
}

// Set は値を保存する。ttlが0以下の場合は期限なし。
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

// Delete はキーを削除する。
func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}
