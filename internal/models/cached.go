package models

import (
	"fmt"
	"time"
)

// CachedConversation is the locally persisted form of a Conversation,
// wrapping the remote DTO with cache bookkeeping (local id, sequence,
// soft-delete and sync timestamps).
type CachedConversation struct {
	id        string
	sequence  int
	remoteID  string
	userID    string
	title     string
	jobCount  int
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
	syncedAt  time.Time
}

var _ Model = (*CachedConversation)(nil)

// NewCachedConversation wraps a remote Conversation for local persistence.
func NewCachedConversation(sequence int, conv Conversation) *CachedConversation {
	now := time.Now()
	return &CachedConversation{
		sequence:  sequence,
		remoteID:  conv.ConversationID,
		userID:    conv.UserID,
		title:     conv.Title,
		jobCount:  len(conv.Jobs),
		createdAt: now,
		updatedAt: now,
		syncedAt:  now,
	}
}

func (c *CachedConversation) ID() string            { return c.id }
func (c *CachedConversation) Sequence() int         { return c.sequence }
func (c *CachedConversation) RemoteID() string      { return c.remoteID }
func (c *CachedConversation) UserID() string        { return c.userID }
func (c *CachedConversation) Title() string         { return c.title }
func (c *CachedConversation) JobCount() int         { return c.jobCount }
func (c *CachedConversation) CreatedAt() time.Time  { return c.createdAt }
func (c *CachedConversation) UpdatedAt() time.Time  { return c.updatedAt }
func (c *CachedConversation) DeletedAt() *time.Time { return c.deletedAt }
func (c *CachedConversation) SyncedAt() time.Time   { return c.syncedAt }

func (c *CachedConversation) SetID(id string)              { c.id = id }
func (c *CachedConversation) SetTitle(title string)        { c.title = title }
func (c *CachedConversation) SetJobCount(n int)            { c.jobCount = n }
func (c *CachedConversation) SetUpdatedAt(t time.Time)     { c.updatedAt = t }
func (c *CachedConversation) SetDeletedAt(t *time.Time)    { c.deletedAt = t }
func (c *CachedConversation) SetSyncedAt(t time.Time)      { c.syncedAt = t }
func (c *CachedConversation) SetCreatedAt(t time.Time)     { c.createdAt = t }

// Validate checks that the cached conversation carries the fields required
// for persistence.
func (c *CachedConversation) Validate() error {
	if c.remoteID == "" {
		return fmt.Errorf("cached conversation missing remote id")
	}
	if c.title == "" {
		return fmt.Errorf("cached conversation missing title")
	}
	return nil
}

// Conversation reconstructs the remote DTO from the cached row.
func (c *CachedConversation) Conversation() Conversation {
	return Conversation{
		ConversationID: c.remoteID,
		Title:          c.title,
		UserID:         c.userID,
		Created:        c.createdAt,
		Updated:        c.updatedAt,
	}
}

// CachedJob is the locally persisted form of a Job.
type CachedJob struct {
	id        string
	sequence  int
	job       Job
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

var _ Model = (*CachedJob)(nil)

// NewCachedJob wraps a remote Job for local persistence.
func NewCachedJob(sequence int, job Job) *CachedJob {
	now := time.Now()
	createdAt := job.Created
	if createdAt.IsZero() {
		createdAt = now
	}
	return &CachedJob{
		sequence:  sequence,
		job:       job,
		createdAt: createdAt,
		updatedAt: now,
	}
}

func (j *CachedJob) ID() string            { return j.id }
func (j *CachedJob) Sequence() int         { return j.sequence }
func (j *CachedJob) RemoteID() string      { return j.job.JobID }
func (j *CachedJob) Job() Job              { return j.job }
func (j *CachedJob) CreatedAt() time.Time  { return j.createdAt }
func (j *CachedJob) UpdatedAt() time.Time  { return j.updatedAt }
func (j *CachedJob) DeletedAt() *time.Time { return j.deletedAt }

func (j *CachedJob) SetID(id string)           { j.id = id }
func (j *CachedJob) SetJob(job Job)            { j.job = job }
func (j *CachedJob) SetUpdatedAt(t time.Time)  { j.updatedAt = t }
func (j *CachedJob) SetDeletedAt(t *time.Time) { j.deletedAt = t }

// Validate checks that the cached job carries the fields required for
// persistence.
func (j *CachedJob) Validate() error {
	if j.job.JobID == "" {
		return fmt.Errorf("cached job missing remote id")
	}
	if j.job.Prompt == "" {
		return fmt.Errorf("cached job missing prompt")
	}
	return nil
}
