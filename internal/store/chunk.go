package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	entsql "entgo.io/ent/dialect/sql"
)

// chunkRepo implements ChunkRepo on the chunks table.
type chunkRepo struct {
	s *Store
}

func (r *chunkRepo) ReplaceDocument(ctx context.Context, documentID string, chunks []ChunkRecord) error {
	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	b := r.s.builder()
	if err := exec(ctx, tx, b.Delete(tableChunks).Where(entsql.EQ("document_id", documentID))); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}

	for _, c := range chunks {
		if c.DocumentID != documentID {
			return fmt.Errorf("chunk %s belongs to %q, not %q", c.ID, c.DocumentID, documentID)
		}
		ins := b.Insert(tableChunks).
			Columns("id", "document_id", "position", "char_offset", "content", "embedding").
			Values(c.ID, c.DocumentID, c.Position, c.Offset, c.Content, EncodeVector(c.Embedding))
		if err := exec(ctx, tx, ins); err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunks: %w", err)
	}
	return nil
}

func (r *chunkRepo) ListByDocument(ctx context.Context, documentID string) ([]ChunkRecord, error) {
	b := r.s.builder()
	q := b.Select("id", "document_id", "position", "char_offset", "content", "embedding").
		From(b.Table(tableChunks)).
		Where(entsql.EQ("document_id", documentID)).
		OrderBy("position")

	rows, err := r.s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	out := []ChunkRecord{}
	for rows.Next() {
		var (
			c   ChunkRecord
			raw []byte
		)
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Position, &c.Offset, &c.Content, &raw); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if c.Embedding, err = DecodeVector(raw); err != nil {
			return nil, fmt.Errorf("chunk %s: %w", c.ID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// EncodeVector packs a vector as little-endian float32 values.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector is the inverse of EncodeVector.
func DecodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(buf))
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v, nil
}
