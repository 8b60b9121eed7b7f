package domain

import "time"

// FileType tags the kind of telecom data a file carries.
type FileType string

const (
	FileTypeCDR         FileType = "CDR"
	FileTypeRevenue     FileType = "REVENUE"
	FileTypeTransaction FileType = "TRANSACTION"
)

// File describes an uploaded telecom data file.
type File struct {
	ID         int64
	Filename   string
	FileType   FileType
	UploadDate time.Time
	FilePath   string
	// Metadata is a free-form JSON document.
	Metadata string
}

// CDRRecord is a single Call Detail Record row.
type CDRRecord struct {
	ID             int64
	FileID         int64
	Timestamp      time.Time
	CallerNumber   string
	ReceiverNumber string
	// Duration is the call length in seconds.
	Duration float64
	CallType string
	Region   string
}

// RevenueRecord is a single revenue entry.
type RevenueRecord struct {
	ID          int64
	FileID      int64
	Timestamp   time.Time
	Region      string
	ServiceType string
	Amount      float64
	Currency    string
}

// RecordCounts summarises how many rows each table holds.
type RecordCounts struct {
	Files          int64
	CDRRecords     int64
	RevenueRecords int64
}
