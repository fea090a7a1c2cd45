package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/animx/internal/models"
)

var (
	_ list.Item = conversationItem{}
)

// conversationItem wraps [models.Conversation] to implement [list.Item].
type conversationItem struct {
	conversation models.Conversation
}

func (i conversationItem) FilterValue() string { return i.conversation.Title }
func (i conversationItem) Title() string       { return i.conversation.Title }
func (i conversationItem) Description() string {
	desc := fmt.Sprintf("%d animations", len(i.conversation.Jobs))
	if !i.conversation.Updated.IsZero() {
		desc = fmt.Sprintf("%s • updated %s", desc, i.conversation.Updated.Format("2006-01-02 15:04"))
	}
	return desc
}
