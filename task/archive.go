package task

import "time"

// TimestampLayout is the layout used for timestamps in archive records.
const TimestampLayout = "2006-01-02 15:04:05"

// ArchiveRecord is the human-readable form of a finished task.
type ArchiveRecord struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	CreatedAt     string          `json:"created_at"`
	FinishedAt    string          `json:"finished_at"`
	AssignedUsers []string        `json:"assigned_users"`
	Comments      []CommentRecord `json:"comments"`
}

// CommentRecord is a comment inside an ArchiveRecord.
type CommentRecord struct {
	Text      string `json:"text"`
	Author    string `json:"author"`
	Timestamp string `json:"timestamp"`
}

// Record returns the archive representation of the task.
func (t *Task) Record() ArchiveRecord {
	record := ArchiveRecord{
		Name:          t.Name,
		Description:   t.Description,
		CreatedAt:     formatTimestamp(t.CreatedAt),
		AssignedUsers: append([]string{}, t.AssignedUsers...),
		Comments:      make([]CommentRecord, 0, len(t.Comments)),
	}
	if t.FinishedAt != nil {
		record.FinishedAt = formatTimestamp(*t.FinishedAt)
	}
	for _, comment := range t.Comments {
		record.Comments = append(record.Comments, CommentRecord{
			Text:      comment.Text,
			Author:    comment.Author,
			Timestamp: formatTimestamp(comment.Timestamp),
		})
	}
	return record
}

func formatTimestamp(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.Format(TimestampLayout)
}
