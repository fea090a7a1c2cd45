package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/animx/internal/models"
	"github.com/desertthunder/animx/internal/shared"
)

// JobRepository implements models.Repository[*models.CachedJob] for the
// local generation history cache.
type JobRepository struct {
	db *sql.DB
}

// NewJobRepository creates a new JobRepository with the given database connection
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new cached job into the database with generated ID and sequence
func (r *JobRepository) Create(cached *models.CachedJob) error {
	sequence, err := NextSequence(r.db, "jobs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	cached.SetID(id)

	if err := cached.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	job := cached.Job()
	query := `
		INSERT INTO jobs (id, sequence, remote_id, conversation_id, title, prompt, status, video_url, code, duration, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		job.JobID,
		job.ConversationID,
		job.Title,
		job.Prompt,
		string(job.Status),
		job.VideoURL,
		job.Code,
		job.Duration,
		job.ErrorMessage,
		cached.CreatedAt(),
		cached.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}

	return nil
}

// Get retrieves a cached job by ID, excluding soft-deleted rows
func (r *JobRepository) Get(id string) (*models.CachedJob, error) {
	query := `
		SELECT id, sequence, remote_id, conversation_id, title, prompt, status, video_url, code, duration, error_message, created_at, updated_at, deleted_at
		FROM jobs
		WHERE id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByRemoteID retrieves a cached job by its backend identifier
func (r *JobRepository) GetByRemoteID(remoteID string) (*models.CachedJob, error) {
	query := `
		SELECT id, sequence, remote_id, conversation_id, title, prompt, status, video_url, code, duration, error_message, created_at, updated_at, deleted_at
		FROM jobs
		WHERE remote_id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, remoteID))
}

// Update modifies an existing cached job in the database
func (r *JobRepository) Update(cached *models.CachedJob) error {
	if err := cached.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	cached.SetUpdatedAt(now)

	job := cached.Job()
	query := `
		UPDATE jobs
		SET conversation_id = ?, title = ?, status = ?, video_url = ?, code = ?, duration = ?, error_message = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		job.ConversationID,
		job.Title,
		string(job.Status),
		job.VideoURL,
		job.Code,
		job.Duration,
		job.ErrorMessage,
		now,
		cached.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("job not found or already deleted: %s", cached.ID())
	}

	return nil
}

// Upsert creates the cached job or refreshes the existing row with the same
// remote id.
func (r *JobRepository) Upsert(cached *models.CachedJob) error {
	existing, err := r.GetByRemoteID(cached.RemoteID())
	if err != nil {
		return r.Create(cached)
	}

	existing.SetJob(cached.Job())
	return r.Update(existing)
}

// Delete soft-deletes a cached job by ID
func (r *JobRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE jobs
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("job not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all cached jobs matching the given criteria, excluding soft-deleted rows
func (r *JobRepository) List(criteria map[string]any) ([]*models.CachedJob, error) {
	query := `
		SELECT id, sequence, remote_id, conversation_id, title, prompt, status, video_url, code, duration, error_message, created_at, updated_at, deleted_at
		FROM jobs
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if conversationID, ok := criteria["conversation_id"].(string); ok && conversationID != "" {
		query += " AND conversation_id = ?"
		args = append(args, conversationID)
	}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.CachedJob
	for rows.Next() {
		job, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return jobs, nil
}

// scanJob scans one row into a [models.CachedJob]
func scanJob(row rowScanner) (*models.CachedJob, error) {
	var (
		id             string
		sequence       int
		remoteID       string
		conversationID sql.NullString
		title          sql.NullString
		prompt         string
		status         string
		videoURL       sql.NullString
		code           sql.NullString
		duration       sql.NullFloat64
		errorMessage   sql.NullString
		createdAt      time.Time
		updatedAt      time.Time
		deletedAt      sql.NullTime
	)

	err := row.Scan(&id, &sequence, &remoteID, &conversationID, &title, &prompt, &status, &videoURL, &code, &duration, &errorMessage, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	cached := models.NewCachedJob(sequence, models.Job{
		JobID:          remoteID,
		ConversationID: conversationID.String,
		Title:          title.String,
		Prompt:         prompt,
		Status:         models.Status(status),
		VideoURL:       videoURL.String,
		Code:           code.String,
		Duration:       duration.Float64,
		ErrorMessage:   errorMessage.String,
		Created:        createdAt,
	})
	cached.SetID(id)
	cached.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		cached.SetDeletedAt(&deletedAt.Time)
	}

	return cached, nil
}

func (r *JobRepository) scanOne(row *sql.Row) (*models.CachedJob, error) {
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, shared.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}
	return job, nil
}

func (r *JobRepository) scanRow(rows *sql.Rows) (*models.CachedJob, error) {
	job, err := scanJob(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}
	return job, nil
}
