package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReportType enumerates supported export datasets.
type ReportType string

// ReportFormat enumerates supported render formats.
type ReportFormat string

// ReportStatus tracks an export job through the queue.
type ReportStatus string

const (
	ReportTypeLeaveRegister ReportType = "LEAVE_REGISTER"

	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"

	ReportStatusQueued     ReportStatus = "QUEUED"
	ReportStatusProcessing ReportStatus = "PROCESSING"
	ReportStatusFinished   ReportStatus = "FINISHED"
	ReportStatusFailed     ReportStatus = "FAILED"
)

// ReportJobParams defines the dataset window and output format.
type ReportJobParams struct {
	DateFrom Date         `json:"date_from"`
	DateTo   Date         `json:"date_to"`
	Format   ReportFormat `json:"format"`
}

// Value implements driver.Valuer for the jsonb params column.
func (p ReportJobParams) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner for the jsonb params column.
func (p *ReportJobParams) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("cannot scan %T into ReportJobParams", src)
	}
}

// ReportJob is a queued leave-register export.
type ReportJob struct {
	ID           string          `db:"id" json:"id"`
	Type         ReportType      `db:"type" json:"type"`
	Params       ReportJobParams `db:"params" json:"params"`
	Status       ReportStatus    `db:"status" json:"status"`
	Progress     int             `db:"progress" json:"progress"`
	ResultURL    *string         `db:"result_url" json:"result_url,omitempty"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedBy    string          `db:"created_by" json:"created_by"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
}
