package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

type cacheRepo struct {
	db *sql.DB
}

func (r *cacheRepo) Put(ctx context.Context, resp CachedResponse) error {
	if resp.CreatedAt.IsZero() {
		resp.CreatedAt = time.Now()
	}
	sources := resp.Sources
	if sources == nil {
		sources = []string{}
	}
	encoded, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("encode sources: %w", err)
	}

	query, args := sqlite().Insert(tableResponseCache).
		Columns("cache_key", "intent", "text", "sources", "created_at").
		Values(resp.Key, resp.Intent, resp.Text, string(encoded), formatTime(resp.CreatedAt)).
		OnConflict(
			entsql.ConflictColumns("cache_key"),
			entsql.ResolveWithNewValues(),
		).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("put cached response: %w", err)
	}
	return nil
}

func (r *cacheRepo) Get(ctx context.Context, key string) (*CachedResponse, error) {
	query, args := sqlite().Select("cache_key", "intent", "text", "sources", "created_at").
		From(entsql.Table(tableResponseCache)).
		Where(entsql.EQ("cache_key", key)).
		Query()

	var (
		resp             CachedResponse
		sources, created string
	)
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&resp.Key, &resp.Intent, &resp.Text, &sources, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached response: %w", err)
	}
	if err := json.Unmarshal([]byte(sources), &resp.Sources); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}
	resp.CreatedAt = parseTime(created)
	return &resp, nil
}
