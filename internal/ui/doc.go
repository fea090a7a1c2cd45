// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a chat-style workflow for animation generation:
//  1. [ConversationListView] : Browse, open, and delete conversations
//  2. [ChatView] : Read the transcript and submit prompts; generation progress renders inline
//  3. [KeyEntryView] : Supply a fallback API key after the shared quota runs out
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the GenerationEngine, providing non-blocking status reporting during runs;
// the transcript itself always renders from the session store, so a superseded run never paints stale state.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, n/d, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
