package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"assignhelper/internal/models"
)

type AssignmentRepo struct {
	db *DB
}

func NewAssignmentRepo(db *DB) *AssignmentRepo {
	return &AssignmentRepo{db: db}
}

func (r *AssignmentRepo) Create(ctx context.Context, a models.Assignment) (int64, error) {
	if a.Status == "" {
		a.Status = models.AssignmentUploaded
	}
	var id int64
	err := r.db.Pool.QueryRow(ctx, `
INSERT INTO assignments (student_id, filename, stored_path, content_sha256, original_text, word_count, status)
VALUES ($1, $2, $3, NULLIF($4,''), $5, $6, $7)
RETURNING id`,
		a.StudentID, a.Filename, a.StoredPath, a.ContentSHA256, a.OriginalText, a.WordCount, a.Status).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert assignment: %w", err)
	}
	return id, nil
}

func (r *AssignmentRepo) Get(ctx context.Context, id int64) (models.Assignment, error) {
	var a models.Assignment
	err := r.db.Pool.QueryRow(ctx, `
SELECT id, student_id, filename, stored_path, COALESCE(content_sha256,''), COALESCE(original_text,''),
       COALESCE(topic,''), COALESCE(academic_level,''), word_count, status, uploaded_at
FROM assignments
WHERE id=$1`, id).
		Scan(&a.ID, &a.StudentID, &a.Filename, &a.StoredPath, &a.ContentSHA256, &a.OriginalText,
			&a.Topic, &a.AcademicLevel, &a.WordCount, &a.Status, &a.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Assignment{}, fmt.Errorf("assignment %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.Assignment{}, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

func (r *AssignmentRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE assignments SET status=$2 WHERE id=$1`, id, status)
	if err != nil {
		return fmt.Errorf("update assignment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("assignment %d: %w", id, models.ErrNotFound)
	}
	return nil
}

// SetTopic copies the synthesized topic and level onto the assignment row.
func (r *AssignmentRepo) SetTopic(ctx context.Context, id int64, topic, level string) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE assignments SET topic=NULLIF($2,''), academic_level=NULLIF($3,'') WHERE id=$1`, id, topic, level)
	if err != nil {
		return fmt.Errorf("update assignment topic: %w", err)
	}
	return nil
}
