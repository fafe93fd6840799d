package protocol

import "testing"

func TestBackupJobString(t *testing.T) {
	base := BackupJob{
		UUID:   "abc-123",
		Client: ClientRef{Name: "alpha"},
		Module: ModuleRef{Name: "etc"},
	}

	cases := []struct {
		status JobStatus
		want   string
	}{
		{JobStatusPending, "Job abc-123 pending for client alpha (etc)"},
		{JobStatusActive, "Job abc-123 running for client alpha (etc)"},
		{JobStatusDone, "Job abc-123 done for client alpha (etc)"},
		{JobStatusIncomplete, "Job abc-123 incomplete for client alpha (etc)"},
		{JobStatusError, "Job abc-123 errored for client alpha (etc)"},
	}

	for _, c := range cases {
		job := base
		job.Status = c.status
		if got := job.String(); got != c.want {
			t.Errorf("status %v: got %q, want %q", c.status, got, c.want)
		}
	}
}

func TestRoutePaths(t *testing.T) {
	uuid := "job-1"

	if got, want := JobStatusPath(uuid), APIPrefix+"/backup/jobs/job-1/status"; got != want {
		t.Errorf("JobStatusPath = %q, want %q", got, want)
	}
	if got, want := JobSignaturePath(uuid), APIPrefix+"/backup/jobs/job-1/signature"; got != want {
		t.Errorf("JobSignaturePath = %q, want %q", got, want)
	}
	if got, want := JobDeltaPath(uuid), APIPrefix+"/backup/jobs/job-1/delta"; got != want {
		t.Errorf("JobDeltaPath = %q, want %q", got, want)
	}
}
