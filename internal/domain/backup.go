package domain

import "time"

type BackupArtifact struct {
	Database    string
	LocalPath   string
	LogicalName string
	MIMEType    string
	Size        int64
	CreatedAt   time.Time
}

type DatabaseResult struct {
	Database     string
	Dumped       bool
	Uploaded     bool
	LogicalName  string
	ArtifactPath string
	RemoteID     string
	Size         int64
	Pruned       []string
	Warnings     []string
	Err          error
	Duration     time.Duration
}

func (r DatabaseResult) Succeeded() bool {
	return r.Dumped && r.Uploaded && r.Err == nil
}

func (r DatabaseResult) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

type JobResult struct {
	ID         string
	Engine     EngineKind
	StartedAt  time.Time
	FinishedAt time.Time
	Entries    []DatabaseResult
}

// Succeeded reports whether every database was dumped and uploaded.
// A job with zero databases succeeds.
func (j *JobResult) Succeeded() bool {
	for _, e := range j.Entries {
		if !e.Succeeded() {
			return false
		}
	}
	return true
}

func (j *JobResult) Failed() []DatabaseResult {
	var failed []DatabaseResult
	for _, e := range j.Entries {
		if !e.Succeeded() {
			failed = append(failed, e)
		}
	}
	return failed
}

func (j *JobResult) Duration() time.Duration {
	return j.FinishedAt.Sub(j.StartedAt)
}
