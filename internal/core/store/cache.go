package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agritox/agritox/internal/core"
)

// GetCachedRecord returns a cached source record if it is still valid.
func (s *Store) GetCachedRecord(ctx context.Context, sourceID, name string) (*core.SourceRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	keyName := strings.TrimSpace(name)
	if keyName == "" {
		return nil, errors.New("cache name is required")
	}

	var (
		recordJSON string
		expiresAt  int64
	)

	row := s.DB.QueryRowContext(ctx, `
		SELECT record_json, expires_at
		FROM source_cache
		WHERE source_id = ? AND name = ? AND expires_at > ?
	`, sourceID, keyName, s.now().Unix())

	if err := row.Scan(&recordJSON, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch cached record: %w", err)
	}

	var record core.SourceRecord
	if err := json.Unmarshal([]byte(recordJSON), &record); err != nil {
		return nil, fmt.Errorf("decode cached record: %w", err)
	}
	record.Normalize()

	expires := time.Unix(expiresAt, 0).UTC()
	record.Provenance.FromCache = true
	record.Provenance.CacheExpiresAt = &expires

	return &record, nil
}

// SetCachedRecord stores a source record with a TTL.
func (s *Store) SetCachedRecord(ctx context.Context, name string, record *core.SourceRecord, ttl time.Duration) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if ttl <= 0 || record == nil {
		return nil
	}

	keyName := strings.TrimSpace(name)
	if keyName == "" {
		return errors.New("cache name is required")
	}

	recordJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode cached record: %w", err)
	}

	now := s.now()
	expires := now.Add(ttl)

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO source_cache (source_id, name, status, record_json, fetched_at, expires_at, tool_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, name) DO UPDATE SET
			status = excluded.status,
			record_json = excluded.record_json,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at,
			tool_version = excluded.tool_version
	`, record.SourceID, keyName, string(record.Status), string(recordJSON), now.Unix(), expires.Unix(), record.Provenance.ToolVersion)
	if err != nil {
		return fmt.Errorf("store cached record: %w", err)
	}

	return nil
}

// GetCachedResolution returns a cached resolution if it is still valid.
func (s *Store) GetCachedResolution(ctx context.Context, key string) (*core.ResolutionResult, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("cache key is required")
	}

	var resultJSON string
	row := s.DB.QueryRowContext(ctx, `
		SELECT result_json
		FROM resolution_cache
		WHERE name = ? AND expires_at > ?
	`, key, s.now().Unix())

	if err := row.Scan(&resultJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch cached resolution: %w", err)
	}

	var result core.ResolutionResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("decode cached resolution: %w", err)
	}
	result.FromCache = true

	return &result, nil
}

// SetCachedResolution stores a resolution with a TTL.
func (s *Store) SetCachedResolution(ctx context.Context, key string, result *core.ResolutionResult, ttl time.Duration) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if ttl <= 0 || result == nil {
		return nil
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("cache key is required")
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode cached resolution: %w", err)
	}

	now := s.now()
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO resolution_cache (name, method, result_json, resolved_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			method = excluded.method,
			result_json = excluded.result_json,
			resolved_at = excluded.resolved_at,
			expires_at = excluded.expires_at
	`, key, string(result.Method), string(resultJSON), now.Unix(), now.Add(ttl).Unix())
	if err != nil {
		return fmt.Errorf("store cached resolution: %w", err)
	}

	return nil
}

// PurgeResult counts rows removed by PurgeCache.
type PurgeResult struct {
	Sources     int64 `json:"sources"`
	Resolutions int64 `json:"resolutions"`
}

// PurgeCache deletes cached records and resolutions. With expiredOnly set,
// only entries past their expiry are removed.
func (s *Store) PurgeCache(ctx context.Context, expiredOnly bool) (PurgeResult, error) {
	if s == nil || s.DB == nil {
		return PurgeResult{}, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	where := ""
	args := []any{}
	if expiredOnly {
		where = "WHERE expires_at <= ?"
		args = append(args, s.now().Unix())
	}

	var result PurgeResult
	for _, target := range []struct {
		table string
		count *int64
	}{
		{"source_cache", &result.Sources},
		{"resolution_cache", &result.Resolutions},
	} {
		res, err := s.DB.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s %s", target.table, where), args...)
		if err != nil {
			return result, fmt.Errorf("purge %s: %w", target.table, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return result, fmt.Errorf("purge %s: %w", target.table, err)
		}
		*target.count = affected
	}

	return result, nil
}

func (s *Store) now() time.Time {
	if s != nil && s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}
