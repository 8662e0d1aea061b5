package amqp

import (
	"testing"

	"expensedash/internal/export"
	"expensedash/internal/query"
)

func TestNewExportJobMessage(t *testing.T) {
	filter := query.Filter{
		UserID:   "3",
		Year:     2024,
		Month:    "February",
		Category: "Food",
		GroupBy:  query.GroupBySubcategory,
		TopN:     5,
	}

	msg := NewExportJobMessage(filter, export.FormatPDF)

	if msg.JobID == "" {
		t.Error("message missing job id")
	}
	if msg.RequestedAt.IsZero() {
		t.Error("message missing timestamp")
	}
	if got := msg.Filter(); got != filter {
		t.Errorf("Filter() = %+v, want %+v", got, filter)
	}
}

func TestExportJobMessageJSONRoundTrip(t *testing.T) {
	msg := NewExportJobMessage(query.Filter{Month: "March", TopN: 10}, export.FormatCSV)

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	decoded, err := ExportJobMessageFromJSON(data)
	if err != nil {
		t.Fatalf("ExportJobMessageFromJSON() error = %v", err)
	}

	if decoded.JobID != msg.JobID || decoded.Month != msg.Month || decoded.Format != msg.Format {
		t.Errorf("decoded = %+v, want %+v", decoded, msg)
	}
}

func TestExportJobMessageFromJSONRejectsBadInput(t *testing.T) {
	if _, err := ExportJobMessageFromJSON([]byte("not json")); err == nil {
		t.Error("malformed JSON should fail")
	}
	if _, err := ExportJobMessageFromJSON([]byte(`{"format": "csv"}`)); err == nil {
		t.Error("message without job_id should fail")
	}
}
