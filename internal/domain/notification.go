package domain

import "time"

// Status enumerates the lifecycle of a notification row.
type Status string

const (
	StatusPending         Status = "pending"
	StatusProcessed       Status = "processed"
	StatusProcessedInTest Status = "processed_in_test"
	StatusArchived        Status = "archived"
	StatusError           Status = "error"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessed, StatusProcessedInTest, StatusArchived, StatusError:
		return true
	}
	return false
}

// Archivable reports whether a row in this status may be archived manually.
func (s Status) Archivable() bool {
	return s == StatusProcessed || s == StatusProcessedInTest
}

// Notification is a portal alert recorded for a case, plus whatever was captured for it.
type Notification struct {
	ID           int64
	CaseID       CaseID
	Type         string
	AdverseParty string
	Date         Day
	Activities   []Activity
	Documents    []Document
	Status       Status
	ArchivedFrom Status
	CreatedAt    time.Time
}

// Activity is an andamento observed on the case timeline.
type Activity struct {
	Date Day     `json:"data"`
	Type string  `json:"tipo"`
	Text *string `json:"texto"`
}

// Document is a file downloaded from the case's document table.
type Document struct {
	Date         Day    `json:"data"`
	Filename     string `json:"nome_arquivo"`
	RelativePath string `json:"caminho_relativo"`
}

// CaseBatch groups the notification dates of one case as the store reports them.
type CaseBatch struct {
	CaseID CaseID
	// Dates is the comma-joined list of distinct DD/MM/YYYY notification dates.
	Dates string
}

// ExecutionLog summarizes one run. Rows are append-only.
type ExecutionLog struct {
	ID                  int64
	RunID               string
	StartedAt           time.Time
	Duration            time.Duration
	AverageCaseDuration time.Duration
	NotificationsSaved  int
	ActivitiesCaptured  int
	DocumentsDownloaded int
	CasesSucceeded      int
	CasesFailed         int
	Critical            bool
	CriticalReason      string
}

// CasesProcessed is the number of cases that reached a terminal outcome, the critical marker included.
func (l ExecutionLog) CasesProcessed() int {
	return l.CasesSucceeded + l.CasesFailed
}

// Download is a file body handed over by the data source.
type Download struct {
	Filename string
	Body     []byte
}
