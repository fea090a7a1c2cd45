package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/animx/internal/models"
	"github.com/desertthunder/animx/internal/shared"
)

// ConversationRepository implements models.Repository[*models.CachedConversation]
// for the local conversation cache.
//
// Handles conversation CRUD operations with soft delete support and remote-id lookups.
type ConversationRepository struct {
	db *sql.DB
}

// NewConversationRepository creates a new ConversationRepository with the given database connection
func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create inserts a new cached conversation into the database with generated ID and sequence
func (r *ConversationRepository) Create(conv *models.CachedConversation) error {
	sequence, err := NextSequence(r.db, "conversations")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	conv.SetID(id)

	if err := conv.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO conversations (id, sequence, remote_id, user_id, title, job_count, created_at, updated_at, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		conv.RemoteID(),
		conv.UserID(),
		conv.Title(),
		conv.JobCount(),
		conv.CreatedAt(),
		conv.UpdatedAt(),
		conv.SyncedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}

	return nil
}

// Get retrieves a cached conversation by ID, excluding soft-deleted rows
func (r *ConversationRepository) Get(id string) (*models.CachedConversation, error) {
	query := `
		SELECT id, sequence, remote_id, user_id, title, job_count, created_at, updated_at, deleted_at, synced_at
		FROM conversations
		WHERE id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByRemoteID retrieves a cached conversation by its backend identifier
func (r *ConversationRepository) GetByRemoteID(remoteID string) (*models.CachedConversation, error) {
	query := `
		SELECT id, sequence, remote_id, user_id, title, job_count, created_at, updated_at, deleted_at, synced_at
		FROM conversations
		WHERE remote_id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, remoteID))
}

// Update modifies an existing cached conversation in the database
func (r *ConversationRepository) Update(conv *models.CachedConversation) error {
	if err := conv.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	conv.SetUpdatedAt(now)

	query := `
		UPDATE conversations
		SET title = ?, job_count = ?, updated_at = ?, synced_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		conv.Title(),
		conv.JobCount(),
		now,
		conv.SyncedAt(),
		conv.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("conversation not found or already deleted: %s", conv.ID())
	}

	return nil
}

// Upsert creates the cached conversation or refreshes the existing row with
// the same remote id.
func (r *ConversationRepository) Upsert(conv *models.CachedConversation) error {
	existing, err := r.GetByRemoteID(conv.RemoteID())
	if err != nil {
		return r.Create(conv)
	}

	existing.SetTitle(conv.Title())
	existing.SetJobCount(conv.JobCount())
	existing.SetSyncedAt(time.Now())
	return r.Update(existing)
}

// Delete soft-deletes a cached conversation by ID
func (r *ConversationRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE conversations
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("conversation not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all cached conversations matching the given criteria, excluding soft-deleted rows
func (r *ConversationRepository) List(criteria map[string]any) ([]*models.CachedConversation, error) {
	query := `
		SELECT id, sequence, remote_id, user_id, title, job_count, created_at, updated_at, deleted_at, synced_at
		FROM conversations
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*models.CachedConversation
	for rows.Next() {
		conv, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return conversations, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanConversation scans one row into a [models.CachedConversation]
func scanConversation(row rowScanner) (*models.CachedConversation, error) {
	var (
		id        string
		sequence  int
		remoteID  string
		userID    sql.NullString
		title     string
		jobCount  int
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
		syncedAt  time.Time
	)

	err := row.Scan(&id, &sequence, &remoteID, &userID, &title, &jobCount, &createdAt, &updatedAt, &deletedAt, &syncedAt)
	if err != nil {
		return nil, err
	}

	conv := models.NewCachedConversation(sequence, models.Conversation{
		ConversationID: remoteID,
		Title:          title,
		UserID:         userID.String,
	})
	conv.SetID(id)
	conv.SetJobCount(jobCount)
	conv.SetCreatedAt(createdAt)
	conv.SetUpdatedAt(updatedAt)
	conv.SetSyncedAt(syncedAt)
	if deletedAt.Valid {
		conv.SetDeletedAt(&deletedAt.Time)
	}

	return conv, nil
}

func (r *ConversationRepository) scanOne(row *sql.Row) (*models.CachedConversation, error) {
	conv, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, shared.ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}
	return conv, nil
}

func (r *ConversationRepository) scanRow(rows *sql.Rows) (*models.CachedConversation, error) {
	conv, err := scanConversation(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}
	return conv, nil
}
