package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var attemptColumns = []string{
	"id", "seq", "student_id", "document_id", "question",
	"selected", "correct", "is_correct", "created_at",
}

// attemptRepo implements AttemptRepo on the attempts table.
type attemptRepo struct {
	s *Store
}

func (r *attemptRepo) Append(ctx context.Context, in AttemptInput) (*Attempt, error) {
	seq, err := r.s.seq.Next(ctx)
	if err != nil {
		return nil, err
	}
	return r.insert(ctx, r.s.db, seq, in, time.Now())
}

func (r *attemptRepo) AppendBatch(ctx context.Context, ins []AttemptInput) ([]Attempt, error) {
	if len(ins) == 0 {
		return nil, nil
	}

	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now()
	out := make([]Attempt, 0, len(ins))
	for i, in := range ins {
		seq, err := r.s.seq.NextTx(ctx, tx)
		if err != nil {
			return nil, err
		}
		a, err := r.insert(ctx, tx, seq, in, now)
		if err != nil {
			return nil, fmt.Errorf("attempt %d: %w", i, err)
		}
		out = append(out, *a)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit attempts: %w", err)
	}
	return out, nil
}

func (r *attemptRepo) insert(ctx context.Context, c conn, seq int64, in AttemptInput, now time.Time) (*Attempt, error) {
	isCorrect := in.Selected == in.Correct

	b := r.s.builder()
	ins := b.Insert(tableAttempts).
		Columns("seq", "student_id", "document_id", "question", "selected", "correct", "is_correct", "created_at").
		Values(seq, in.StudentID, in.DocumentID, in.Question, in.Selected, in.Correct, isCorrect, now.UnixMilli())
	if err := exec(ctx, c, ins); err != nil {
		return nil, fmt.Errorf("save attempt: %w", err)
	}

	// Looked up by seq rather than LastInsertId, which lib/pq does not support.
	stmt, args := b.Select("id").From(b.Table(tableAttempts)).Where(entsql.EQ("seq", seq)).Query()
	var id int64
	if err := c.QueryRowContext(ctx, stmt, args...).Scan(&id); err != nil {
		return nil, fmt.Errorf("load attempt id: %w", err)
	}

	return &Attempt{
		ID:         id,
		Sequence:   seq,
		StudentID:  in.StudentID,
		DocumentID: in.DocumentID,
		Question:   in.Question,
		Selected:   in.Selected,
		Correct:    in.Correct,
		IsCorrect:  isCorrect,
		Timestamp:  time.UnixMilli(now.UnixMilli()),
	}, nil
}

func (r *attemptRepo) CountTotalAndCorrect(ctx context.Context, studentID, documentID string) (int, int, error) {
	b := r.s.builder()
	q := b.Select("COUNT(*)", "COALESCE(SUM(CASE WHEN is_correct THEN 1 ELSE 0 END), 0)").
		From(b.Table(tableAttempts)).
		Where(studentDocument(studentID, documentID))

	rows, err := r.s.query(ctx, q)
	if err != nil {
		return 0, 0, fmt.Errorf("count attempts: %w", err)
	}
	defer rows.Close()

	var total, correct int64
	if rows.Next() {
		if err := rows.Scan(&total, &correct); err != nil {
			return 0, 0, fmt.Errorf("scan counts: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, 0, err
	}
	return int(total), int(correct), nil
}

func (r *attemptRepo) WrongGroupedByQuestion(ctx context.Context, studentID, documentID string) ([]WrongCount, error) {
	b := r.s.builder()
	q := b.Select("question", "COUNT(*) AS wrong_count", "MAX(seq) AS last_seq").
		From(b.Table(tableAttempts)).
		Where(entsql.And(studentDocument(studentID, documentID), entsql.EQ("is_correct", false))).
		GroupBy("question").
		OrderExpr(entsql.Expr("wrong_count DESC, last_seq DESC"))

	rows, err := r.s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("group wrong attempts: %w", err)
	}
	defer rows.Close()

	var out []WrongCount
	for rows.Next() {
		var (
			wc    WrongCount
			count int64
		)
		if err := rows.Scan(&wc.Question, &count, &wc.LastSequence); err != nil {
			return nil, fmt.Errorf("scan wrong count: %w", err)
		}
		wc.Count = int(count)
		out = append(out, wc)
	}
	return out, rows.Err()
}

func (r *attemptRepo) DistinctStudents(ctx context.Context, documentID string) ([]string, error) {
	b := r.s.builder()
	q := b.Select("student_id").Distinct().
		From(b.Table(tableAttempts)).
		Where(entsql.EQ("document_id", documentID)).
		OrderBy("student_id")

	rows, err := r.s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *attemptRepo) RecentWrong(ctx context.Context, studentID, documentID string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	b := r.s.builder()
	q := b.Select("question").
		From(b.Table(tableAttempts)).
		Where(entsql.And(studentDocument(studentID, documentID), entsql.EQ("is_correct", false))).
		OrderExpr(entsql.Expr("seq DESC")).
		Limit(limit)

	rows, err := r.s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("recent wrong attempts: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var question string
		if err := rows.Scan(&question); err != nil {
			return nil, err
		}
		out = append(out, question)
	}
	return out, rows.Err()
}

func (r *attemptRepo) WrongHistory(ctx context.Context, studentID, documentID string) ([]Attempt, error) {
	b := r.s.builder()
	q := b.Select(attemptColumns...).
		From(b.Table(tableAttempts)).
		Where(entsql.And(studentDocument(studentID, documentID), entsql.EQ("is_correct", false))).
		OrderExpr(entsql.Expr("seq DESC"))

	rows, err := r.s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("wrong history: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var (
			a  Attempt
			ms int64
		)
		if err := rows.Scan(&a.ID, &a.Sequence, &a.StudentID, &a.DocumentID, &a.Question,
			&a.Selected, &a.Correct, &a.IsCorrect, &ms); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.Timestamp = time.UnixMilli(ms)
		out = append(out, a)
	}
	return out, rows.Err()
}

func studentDocument(studentID, documentID string) *entsql.Predicate {
	return entsql.And(
		entsql.EQ("student_id", studentID),
		entsql.EQ("document_id", documentID),
	)
}
