package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/animx/internal/models"
	"github.com/desertthunder/animx/internal/services"
	"github.com/desertthunder/animx/internal/shared"
)

// Transcript message texts for non-completed outcomes.
const (
	PlaceholderMessage = "Generation started..."
	InProgressMessage  = "Generation in progress..."
	TimeoutMessage     = "Generation took too long. Please try again."
	ReadyMessage       = "Animation ready"
)

// ConversationAPI is the slice of the backend client the session needs for
// conversation management and video URL templating.
type ConversationAPI interface {
	ListConversations(ctx context.Context, limit, offset int) ([]models.Conversation, error)
	CreateConversation(ctx context.Context, title string) (*models.Conversation, error)
	GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error)
	DeleteConversation(ctx context.Context, conversationID string) error
	VideoURL(jobID string) string
}

var _ ConversationAPI = (*services.AnimationService)(nil)

// Session is the client-side state store. One session backs one running
// client; all mutation goes through its methods.
type Session struct {
	mu     sync.RWMutex
	api    ConversationAPI
	logger *log.Logger

	conversations []models.Conversation
	activeConv    string
	transcript    []models.Message

	run       string
	jobID     string
	loading   bool
	statusTag models.Status
	lastError string

	keyRequired bool
	apiKey      string
	authed      bool
}

// NewSession creates a session backed by the given conversation API.
func NewSession(api ConversationAPI, logger *log.Logger) *Session {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Session{api: api, logger: logger}
}

// Transcript returns a copy of the current message transcript.
func (s *Session) Transcript() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Conversations returns a copy of the cached conversation list.
func (s *Session) Conversations() []models.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Conversation, len(s.conversations))
	copy(out, s.conversations)
	return out
}

// ActiveConversation returns the id of the active conversation, empty when
// none is active.
func (s *Session) ActiveConversation() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeConv
}

// CurrentJobID returns the job id of the in-flight generation, empty when
// idle or before submission succeeds.
func (s *Session) CurrentJobID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobID
}

// Loading reports whether a generation run is in flight.
func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// StatusTag returns the last observed job status tag.
func (s *Session) StatusTag() models.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statusTag
}

// LastError returns the recoverable error string from the last run, empty
// when the last run succeeded or none ran.
func (s *Session) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// KeyRequired reports whether the backend demanded a fallback API key.
func (s *Session) KeyRequired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keyRequired
}

// APIKey returns the stored fallback API key, empty when unset.
func (s *Session) APIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiKey
}

// SetAPIKey stores the fallback key and clears the key-required flag. The
// prior prompt is not resubmitted; the user must generate again.
func (s *Session) SetAPIKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKey = key
	s.keyRequired = false
}

// Authenticated reports whether a session credential backs this session.
// Anonymous sessions can still generate, but own no conversations.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authed
}

// SetAuthenticated records whether a bearer token is configured on the
// backend client.
func (s *Session) SetAuthenticated(authed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authed = authed
}

// StartGeneration begins a new generation run for prompt: the user message
// is appended optimistically, loading is set, and any previous run is
// superseded. It returns the run token the engine must pass to subsequent
// mutators.
func (s *Session) StartGeneration(prompt string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	run := shared.GenerateID()
	s.run = run
	s.jobID = ""
	s.loading = true
	s.lastError = ""
	s.statusTag = ""
	s.append(models.RoleUser, prompt, "", "")

	return run
}

// BeginJob records the job id returned by a successful submission and
// appends the placeholder assistant message. Returns false if the run has
// been superseded.
func (s *Session) BeginJob(run, jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run != s.run {
		return false
	}

	s.jobID = jobID
	s.statusTag = models.StatusPending
	s.append(models.RoleAssistant, PlaceholderMessage, "", "")
	return true
}

// UpdateStatus records a non-terminal status observation. Returns false if
// the run has been superseded.
func (s *Session) UpdateStatus(run string, status models.Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run != s.run {
		return false
	}

	s.statusTag = status
	return true
}

// CompleteJob ends the run successfully, appending the terminal assistant
// message with the templated video URL and generated code. Returns false if
// the run has been superseded.
func (s *Session) CompleteJob(run, videoURL, code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run != s.run {
		return false
	}

	s.loading = false
	s.statusTag = models.StatusCompleted
	s.append(models.RoleAssistant, ReadyMessage, videoURL, code)
	return true
}

// FailJob ends the run with a server-reported failure. Returns false if the
// run has been superseded.
func (s *Session) FailJob(run, reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run != s.run {
		return false
	}

	s.loading = false
	s.statusTag = models.StatusFailed
	s.lastError = reason
	s.append(models.RoleAssistant, "Generation failed: "+reason, "", "")
	return true
}

// FailSubmission ends the run before a job existed (retries exhausted, 4xx,
// or network failure). Returns false if the run has been superseded.
func (s *Session) FailSubmission(run, reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run != s.run {
		return false
	}

	s.loading = false
	s.lastError = reason
	s.append(models.RoleAssistant, "Generation failed: "+reason, "", "")
	return true
}

// TimeoutJob ends the run after the poll budget is exhausted. Returns false
// if the run has been superseded.
func (s *Session) TimeoutJob(run string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run != s.run {
		return false
	}

	s.loading = false
	s.lastError = TimeoutMessage
	s.append(models.RoleAssistant, TimeoutMessage, "", "")
	return true
}

// RequireKey halts the run for quota exhaustion: loading is cleared and the
// key-required flag is set, with no failure message appended. Returns false
// if the run has been superseded.
func (s *Session) RequireKey(run string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run != s.run {
		return false
	}

	s.loading = false
	s.keyRequired = true
	return true
}

// Reset clears all generation state: transcript, status, error, loading,
// and the active run. The conversation list and stored key survive.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *Session) reset() {
	s.run = ""
	s.jobID = ""
	s.loading = false
	s.statusTag = ""
	s.lastError = ""
	s.transcript = nil
	s.activeConv = ""
}

// append adds a message to the transcript. Callers hold s.mu.
func (s *Session) append(role models.Role, content, videoURL, code string) {
	s.transcript = append(s.transcript, models.Message{
		ID:        shared.GenerateID(),
		Role:      role,
		Content:   content,
		VideoURL:  videoURL,
		Code:      code,
		CreatedAt: time.Now(),
	})
}

// RefreshConversations fetches the conversation list from the backend. A
// fetch failure is logged and leaves the cached list untouched.
func (s *Session) RefreshConversations(ctx context.Context) {
	conversations, err := s.api.ListConversations(ctx, 0, 0)
	if err != nil {
		s.logger.Warn("failed to list conversations", "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = conversations
}

// CreateConversation creates a conversation, prepends it to the cached
// list, and marks it active.
func (s *Session) CreateConversation(ctx context.Context, title string) (*models.Conversation, error) {
	conv, err := s.api.CreateConversation(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = append([]models.Conversation{*conv}, s.conversations...)
	s.activeConv = conv.ConversationID

	return conv, nil
}

// EnsureConversation returns the active conversation id, creating one
// titled from the prompt when none is active and a session credential is
// present. Anonymous sessions skip creation entirely. Creation failure is
// non-fatal: it is logged and generation proceeds without a conversation
// association.
func (s *Session) EnsureConversation(ctx context.Context, prompt string) string {
	s.mu.RLock()
	active := s.activeConv
	authed := s.authed
	s.mu.RUnlock()

	if active != "" {
		return active
	}
	if !authed {
		return ""
	}

	conv, err := s.CreateConversation(ctx, shared.TitleFromPrompt(prompt))
	if err != nil {
		s.logger.Warn("failed to create conversation, generating without one", "error", err)
		return ""
	}

	return conv.ConversationID
}

// DeleteConversation deletes a conversation remotely and drops it from the
// cached list. Deleting the active conversation resets all generation
// session state so no dangling reference survives.
func (s *Session) DeleteConversation(ctx context.Context, conversationID string) error {
	if err := s.api.DeleteConversation(ctx, conversationID); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.conversations[:0]
	for _, conv := range s.conversations {
		if conv.ConversationID != conversationID {
			kept = append(kept, conv)
		}
	}
	s.conversations = kept

	if s.activeConv == conversationID {
		s.reset()
	}

	return nil
}

// LoadConversation fetches a conversation's detail and replaces the whole
// transcript with the projection of its jobs. Any in-flight generation run
// is superseded.
func (s *Session) LoadConversation(ctx context.Context, conversationID string) (*models.Conversation, error) {
	conv, err := s.api.GetConversation(ctx, conversationID)
	if err != nil {
		s.mu.Lock()
		s.lastError = "failed to load conversation"
		s.loading = false
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	transcript := ProjectTranscript(conv.Jobs, s.api.VideoURL)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.run = ""
	s.jobID = ""
	s.loading = false
	s.statusTag = ""
	s.lastError = ""
	s.activeConv = conv.ConversationID
	s.transcript = transcript

	return conv, nil
}

// ProjectTranscript deterministically projects persisted jobs into the
// message transcript, ordered by the jobs slice. Every job yields one user
// message; completed, failed, and in-progress jobs yield one assistant
// message each, any other status yields none. Video URLs are always
// templated via videoURL, never taken from the persisted job.
func ProjectTranscript(jobs []models.Job, videoURL func(jobID string) string) []models.Message {
	var messages []models.Message

	appendMsg := func(role models.Role, content, video, code string) {
		messages = append(messages, models.Message{
			ID:        shared.GenerateID(),
			Role:      role,
			Content:   content,
			VideoURL:  video,
			Code:      code,
			CreatedAt: time.Now(),
		})
	}

	for _, job := range jobs {
		appendMsg(models.RoleUser, job.Prompt, "", "")

		switch {
		case job.Status.Completed() && job.VideoURL != "":
			appendMsg(models.RoleAssistant, ReadyMessage, videoURL(job.JobID), job.Code)
		case job.Status.Failed():
			reason := job.ErrorMessage
			if reason == "" {
				reason = services.DefaultErrorMessage
			}
			appendMsg(models.RoleAssistant, "Generation failed: "+reason, "", "")
		case job.Status.InProgress():
			appendMsg(models.RoleAssistant, InProgressMessage, "", "")
		}
	}

	return messages
}
