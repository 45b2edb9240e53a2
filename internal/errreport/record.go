// Package errreport collects failed imports from the event bus and optionally
// submits them to an error-report endpoint.
package errreport

import (
	"os"
	"runtime"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Status is the submission state of a Record.
type Status string

const (
	StatusPending Status = "pending"
	StatusSending Status = "sending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Environment describes the host a failure happened on.
type Environment struct {
	GoVersion  string `json:"go_version"`
	OS         string `json:"os"`
	Arch       string `json:"arch"`
	Hostname   string `json:"hostname,omitempty"`
	AppVersion string `json:"app_version"`
}

// Snapshot captures the current environment.
func Snapshot(appVersion string) Environment {
	host, _ := os.Hostname()
	return Environment{
		GoVersion:  runtime.Version(),
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		Hostname:   host,
		AppVersion: appVersion,
	}
}

// Record is one failed import awaiting submission.
type Record struct {
	ID        string      `json:"id"`
	EventType string      `json:"event_type"`
	File      string      `json:"file"`
	UsedFiles []string    `json:"used_files"`
	Format    string      `json:"format"`
	Error     string      `json:"error"`
	Env       Environment `json:"environment"`
	Status    Status      `json:"-"`
	Reply     string      `json:"-"`
	CreatedAt time.Time   `json:"created_at"`
}

func newRecord(eventType, file string, usedFiles []string, format string, err string, env Environment) *Record {
	return &Record{
		ID:        uuid.New().String(),
		EventType: eventType,
		File:      file,
		UsedFiles: slices.Clone(usedFiles),
		Format:    format,
		Error:     err,
		Env:       env,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
}
