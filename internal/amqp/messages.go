package amqp

import (
	"encoding/json"
	"time"

	"gptracker/internal/remote"
)

// SyncJob asks the worker to push a snapshot to the remote store. It carries
// only the snapshot id and the save scope; the worker fetches the payload
// from the database so stale queue messages never overwrite newer data with
// an inlined copy.
type SyncJob struct {
	SnapshotID  int64     `json:"snapshotId"`
	BankOnly    bool      `json:"bankOnly"`
	Characters  []string  `json:"characters,omitempty"`
	Force       bool      `json:"force"`
	RequestedAt time.Time `json:"requestedAt"`
}

func NewSyncJob(snapshotID int64, scope remote.SaveScope) *SyncJob {
	return &SyncJob{
		SnapshotID:  snapshotID,
		BankOnly:    scope.BankOnly,
		Characters:  scope.Characters,
		Force:       scope.Force,
		RequestedAt: time.Now(),
	}
}

// Scope rebuilds the save scope the job was queued with.
func (j *SyncJob) Scope() remote.SaveScope {
	return remote.SaveScope{
		BankOnly:   j.BankOnly,
		Characters: j.Characters,
		Force:      j.Force,
	}
}

func (j *SyncJob) ToJSON() ([]byte, error) {
	return json.Marshal(j)
}

func SyncJobFromJSON(data []byte) (*SyncJob, error) {
	var job SyncJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}
