package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"expensedash/internal/export"
	"expensedash/internal/query"

	"github.com/google/uuid"
)

// ExportJobMessage asks the export worker to re-run the dashboard pipeline
// for a filter and serialize the ranked table.
type ExportJobMessage struct {
	JobID       string    `json:"job_id"`
	UserID      string    `json:"user_id,omitempty"`
	Year        int       `json:"year,omitempty"`
	Month       string    `json:"month,omitempty"`
	Category    string    `json:"category,omitempty"`
	GroupBy     string    `json:"group_by"`
	TopN        int       `json:"top_n"`
	Format      string    `json:"format"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewExportJobMessage captures a filter and target format as a queued job.
func NewExportJobMessage(f query.Filter, format export.Format) *ExportJobMessage {
	return &ExportJobMessage{
		JobID:       uuid.NewString(),
		UserID:      f.UserID,
		Year:        f.Year,
		Month:       f.Month,
		Category:    f.Category,
		GroupBy:     string(f.GroupBy),
		TopN:        f.TopN,
		Format:      string(format),
		RequestedAt: time.Now().UTC(),
	}
}

// Filter reconstructs the dashboard filter carried by the job.
func (m *ExportJobMessage) Filter() query.Filter {
	return query.Filter{
		UserID:   m.UserID,
		Year:     m.Year,
		Month:    m.Month,
		Category: m.Category,
		GroupBy:  query.GroupBy(m.GroupBy),
		TopN:     m.TopN,
	}
}

func (m *ExportJobMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExportJobMessageFromJSON(data []byte) (*ExportJobMessage, error) {
	var m ExportJobMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal export job: %w", err)
	}
	if m.JobID == "" {
		return nil, fmt.Errorf("export job missing job_id")
	}
	return &m, nil
}
