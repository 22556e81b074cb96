package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-search/internal/store"
)

func (s *Store) CreateCollection(ctx context.Context, name string, dim int, metric store.Metric) error {
	var existingDim int
	var existingMetric string
	err := s.db.QueryRowContext(ctx,
		`SELECT dim, metric FROM collections WHERE name = $1`, name).
		Scan(&existingDim, &existingMetric)
	switch {
	case err == nil:
		if existingDim != dim || store.Metric(existingMetric) != metric {
			return fmt.Errorf("%w: %s has dim=%d metric=%s, requested dim=%d metric=%s",
				store.ErrSchemaConflict, name, existingDim, existingMetric, dim, metric)
		}
		return nil
	case errors.Is(err, sql.ErrNoRows):
		// fall through to insert
	default:
		return fmt.Errorf("query collection schema: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO collections (name, dim, metric) VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO NOTHING`, name, dim, string(metric))
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

func (s *Store) CollectionInfo(ctx context.Context, name string) (*store.CollectionInfo, error) {
	info := &store.CollectionInfo{Name: name}
	var metric string
	err := s.db.QueryRowContext(ctx,
		`SELECT c.dim, c.metric,
		        (SELECT COUNT(*) FROM face_records r WHERE r.collection = c.name)
		 FROM collections c WHERE c.name = $1`, name).
		Scan(&info.Dim, &metric, &info.Count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrCollectionNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}
	info.Metric = store.Metric(metric)
	return info, nil
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", store.ErrCollectionNotFound, name)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, collection string, rec store.Record) error {
	info, err := s.CollectionInfo(ctx, collection)
	if err != nil {
		return err
	}
	if len(rec.Vector) != info.Dim {
		return fmt.Errorf("%w: got %d, collection %s expects %d",
			store.ErrDimensionMismatch, len(rec.Vector), collection, info.Dim)
	}

	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO face_records (collection, id, embedding, payload)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (collection, id)
		 DO UPDATE SET embedding = EXCLUDED.embedding, payload = EXCLUDED.payload`,
		collection, rec.ID, pgvector.NewVector(rec.Vector), payload)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// distanceExpr maps a metric onto its pgvector operator. All three
// operators rank ascending; the dot-product operator returns the
// negated inner product, which the scan below flips back.
func distanceExpr(metric store.Metric) string {
	switch metric {
	case store.MetricCosine:
		return "embedding <=> $2"
	case store.MetricDot:
		return "embedding <#> $2"
	default:
		return "embedding <-> $2"
	}
}

func (s *Store) Query(ctx context.Context, collection string, vector []float32, topK int) ([]store.Match, error) {
	info, err := s.CollectionInfo(ctx, collection)
	if err != nil {
		return nil, err
	}
	if len(vector) != info.Dim {
		return nil, fmt.Errorf("%w: got %d, collection %s expects %d",
			store.ErrDimensionMismatch, len(vector), collection, info.Dim)
	}

	query := fmt.Sprintf(
		`SELECT id, payload, %s AS distance
		 FROM face_records
		 WHERE collection = $1
		 ORDER BY distance ASC
		 LIMIT $3`, distanceExpr(info.Metric))

	rows, err := s.db.QueryContext(ctx, query, collection, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	matches := make([]store.Match, 0, topK)
	for rows.Next() {
		var m store.Match
		var payload []byte
		var distance float64
		if err := rows.Scan(&m.ID, &payload, &distance); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &m.Payload); err != nil {
				return nil, fmt.Errorf("unmarshal payload for %s: %w", m.ID, err)
			}
		}
		switch info.Metric {
		case store.MetricCosine:
			m.Score = 1 - distance
		case store.MetricDot:
			m.Score = -distance
		default:
			m.Score = distance
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return matches, nil
}

func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	info, err := s.CollectionInfo(ctx, collection)
	if err != nil {
		return 0, err
	}
	return info.Count, nil
}
