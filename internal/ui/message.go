package ui

import (
	"github.com/desertthunder/animx/internal/models"
	"github.com/desertthunder/animx/internal/tasks"
)

// conversationsFetchedMsg carries the refreshed conversation list.
type conversationsFetchedMsg struct {
	conversations []models.Conversation
}

// conversationLoadedMsg carries a conversation opened from the list.
type conversationLoadedMsg struct {
	conversation *models.Conversation
	err          error
}

// progressUpdateMsg relays one engine progress update into the Elm loop.
type progressUpdateMsg tasks.ProgressUpdate

// generationDoneMsg carries the terminal outcome of a generation run.
type generationDoneMsg struct {
	result *tasks.GenerationResult
	err    error
}
