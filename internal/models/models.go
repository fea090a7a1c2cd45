// package models defines the data model for the animation generation client
package models

import (
	"time"
)

// Model defines the base interface for all persistent models in the animation client.
// Implementations include CachedConversation and CachedJob.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a conversation transcript.
//
// Messages are created when the user submits a prompt (user role) or when a
// job reaches a reportable state (assistant role). They are never mutated
// after creation; swapping or resetting the active conversation discards
// them wholesale.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	VideoURL  string    `json:"videoUrl,omitempty"`
	Code      string    `json:"code,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Job is a server-tracked unit of generation work identified by an opaque id.
//
// Status transitions are server-driven and observed only through polling;
// the client caches the last observed value but every poll response is the
// source of truth.
type Job struct {
	JobID          string    `json:"id"`
	Title          string    `json:"title,omitempty"`
	Prompt         string    `json:"prompt"`
	Status         Status    `json:"status"`
	VideoURL       string    `json:"videoUrl,omitempty"`
	Code           string    `json:"code,omitempty"`
	Duration       float64   `json:"duration,omitempty"`
	ErrorMessage   string    `json:"errorMessage,omitempty"`
	ConversationID string    `json:"conversationId,omitempty"`
	Created        time.Time `json:"createdAt"`
	Updated        time.Time `json:"updatedAt"`
}

// Conversation is a named, ordered collection of jobs belonging to a user.
type Conversation struct {
	ConversationID string    `json:"id"`
	Title          string    `json:"title"`
	UserID         string    `json:"userId,omitempty"`
	Created        time.Time `json:"createdAt"`
	Updated        time.Time `json:"updatedAt"`
	Jobs           []Job     `json:"jobs,omitempty"`
}

// JobPage is one page of a paginated job listing.
type JobPage struct {
	Jobs   []Job `json:"jobs"`
	Total  int   `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}
