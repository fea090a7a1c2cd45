// package formatter provides functions to export conversation transcripts and job history to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/desertthunder/animx/internal/models"
	"github.com/desertthunder/animx/internal/shared"
)

// ExportToCSV converts a conversation's jobs to CSV format with columns: ID, Prompt, Status, Duration, VideoURL, CreatedAt
func ExportToCSV(conv *models.Conversation) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Prompt", "Status", "Duration", "VideoURL", "CreatedAt"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, job := range conv.Jobs {
		record := []string{
			job.JobID,
			job.Prompt,
			string(job.Status),
			strconv.FormatFloat(job.Duration, 'f', -1, 64),
			job.VideoURL,
			job.Created.Format("2006-01-02 15:04:05"),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders a conversation transcript as Markdown. Video
// links and generated code blocks are included when a message carries them.
func ExportToMarkdown(conv *models.Conversation, messages []models.Message) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", conv.Title))
	buf.WriteString(fmt.Sprintf("**Animations**: %d\n\n", len(conv.Jobs)))

	for _, msg := range messages {
		switch msg.Role {
		case models.RoleUser:
			buf.WriteString(fmt.Sprintf("**You**: %s\n\n", msg.Content))
		case models.RoleAssistant:
			buf.WriteString(fmt.Sprintf("**Assistant**: %s\n\n", msg.Content))
			if msg.VideoURL != "" {
				buf.WriteString(fmt.Sprintf("[Video](%s)\n\n", msg.VideoURL))
			}
			if msg.Code != "" {
				buf.WriteString(fmt.Sprintf("```python\n%s\n```\n\n", msg.Code))
			}
		}
	}

	return buf.Bytes(), nil
}

// ExportToText renders a conversation transcript as plain text.
func ExportToText(conv *models.Conversation, messages []models.Message) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Conversation: %s\n", conv.Title))
	buf.WriteString(fmt.Sprintf("Animations: %d\n\n", len(conv.Jobs)))

	for _, msg := range messages {
		role := "You"
		if msg.Role == models.RoleAssistant {
			role = "Assistant"
		}
		buf.WriteString(fmt.Sprintf("%s: %s\n", role, msg.Content))
		if msg.VideoURL != "" {
			buf.WriteString(fmt.Sprintf("  video: %s\n", msg.VideoURL))
		}
	}

	return buf.Bytes(), nil
}

// ToMetadataJSON generates a JSON representation of conversation metadata (without jobs)
func ToMetadataJSON(conv models.Conversation) ([]byte, error) {
	conv.Jobs = nil
	return shared.MarshalJSON(conv, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	JobsFile     string
	MetadataFile string
}

// WriteCSVExport exports a conversation to CSV format with accompanying metadata JSON file.
//
// Defaults to the conversation ID as the base filename & creates {base}_jobs.csv and {base}_metadata.json
func WriteCSVExport(conv *models.Conversation, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = conv.ConversationID
	}

	csvData, err := ExportToCSV(conv)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	jobsFile := baseFilepath + "_jobs.csv"
	if err := os.WriteFile(jobsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(*conv)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		JobsFile:     jobsFile,
		MetadataFile: metadataFile,
	}, nil
}

// WriteMarkdownExport exports a conversation transcript to Markdown.
//
// Defaults to {conversation.ID}.md as the filename.
func WriteMarkdownExport(conv *models.Conversation, messages []models.Message, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s.md", conv.ConversationID)
	}

	mdData, err := ExportToMarkdown(conv, messages)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	if err := os.WriteFile(filepath, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return filepath, nil
}

// WriteTextExport exports a conversation transcript to plain text.
//
// Defaults to {conversation.ID}.txt as the filename.
func WriteTextExport(conv *models.Conversation, messages []models.Message, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s.txt", conv.ConversationID)
	}

	textData, err := ExportToText(conv, messages)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(filepath, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return filepath, nil
}

// WriteBulkExportManifest writes a JSON manifest summarizing a bulk export.
func WriteBulkExportManifest(result any, path string) error {
	data, err := shared.MarshalJSON(result, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return nil
}
