package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var documentColumns = []string{"id", "filename", "sha256", "chunk_count", "created_at"}

// documentRepo implements DocumentRepo on the documents table.
type documentRepo struct {
	s *Store
}

func (r *documentRepo) Create(ctx context.Context, doc Document) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	ins := r.s.builder().Insert(tableDocuments).
		Columns(documentColumns...).
		Values(doc.ID, doc.Filename, doc.SHA256, doc.ChunkCount, doc.CreatedAt.UnixMilli())
	if err := exec(ctx, r.s.db, ins); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

func (r *documentRepo) Get(ctx context.Context, id string) (*Document, error) {
	b := r.s.builder()
	q := b.Select(documentColumns...).
		From(b.Table(tableDocuments)).
		Where(entsql.EQ("id", id))

	docs, err := r.scan(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return &docs[0], nil
}

func (r *documentRepo) List(ctx context.Context) ([]Document, error) {
	b := r.s.builder()
	q := b.Select(documentColumns...).
		From(b.Table(tableDocuments)).
		OrderExpr(entsql.Expr("created_at DESC, id ASC"))
	return r.scan(ctx, q)
}

func (r *documentRepo) scan(ctx context.Context, q *entsql.Selector) ([]Document, error) {
	rows, err := r.s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var (
			d  Document
			ms int64
		)
		if err := rows.Scan(&d.ID, &d.Filename, &d.SHA256, &d.ChunkCount, &ms); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.CreatedAt = time.UnixMilli(ms)
		out = append(out, d)
	}
	return out, rows.Err()
}
