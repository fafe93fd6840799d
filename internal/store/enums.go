package store

import (
	"database/sql/driver"
	"fmt"
)

// BackupType is the Full/Diff selector for a module or job, encoded at the
// DB boundary as a small integer per spec.md §4.6.
type BackupType int

const (
	BackupTypeFull BackupType = 0
	BackupTypeDiff BackupType = 1
)

func (t BackupType) String() string {
	switch t {
	case BackupTypeFull:
		return "Full"
	case BackupTypeDiff:
		return "Diff"
	default:
		return fmt.Sprintf("BackupType(%d)", int(t))
	}
}

// Value implements driver.Valuer so GORM stores the enum as its integer code.
func (t BackupType) Value() (driver.Value, error) {
	return int64(t), nil
}

// Scan implements sql.Scanner, the single fallible decoder through which
// every BackupType conversion at the DB boundary passes. Out-of-range
// integers surface as a decoding error rather than being silently accepted.
func (t *BackupType) Scan(value interface{}) error {
	i, err := scanInt(value)
	if err != nil {
		return fmt.Errorf("store: decoding BackupType: %w", err)
	}
	switch BackupType(i) {
	case BackupTypeFull, BackupTypeDiff:
		*t = BackupType(i)
		return nil
	default:
		return fmt.Errorf("store: decoding BackupType: out-of-range value %d", i)
	}
}

// JobStatus is the lifecycle state of a BackupJob. Status advances
// monotonically Pending -> Active -> {Done, Incomplete, Error}; once
// terminal a job never re-runs under the same uuid (spec.md §3).
type JobStatus int

const (
	JobStatusPending JobStatus = iota
	JobStatusActive
	JobStatusDone
	JobStatusIncomplete
	JobStatusError
)

func (s JobStatus) String() string {
	switch s {
	case JobStatusPending:
		return "Pending"
	case JobStatusActive:
		return "Active"
	case JobStatusDone:
		return "Done"
	case JobStatusIncomplete:
		return "Incomplete"
	case JobStatusError:
		return "Error"
	default:
		return fmt.Sprintf("JobStatus(%d)", int(s))
	}
}

// Terminal reports whether s is one of the three terminal states.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusIncomplete || s == JobStatusError
}

func (s JobStatus) Value() (driver.Value, error) {
	return int64(s), nil
}

func (s *JobStatus) Scan(value interface{}) error {
	i, err := scanInt(value)
	if err != nil {
		return fmt.Errorf("store: decoding JobStatus: %w", err)
	}
	switch JobStatus(i) {
	case JobStatusPending, JobStatusActive, JobStatusDone, JobStatusIncomplete, JobStatusError:
		*s = JobStatus(i)
		return nil
	default:
		return fmt.Errorf("store: decoding JobStatus: out-of-range value %d", i)
	}
}

// scanInt normalizes the handful of types database/sql hands Scan
// implementations (int64 from SQLite, possibly []byte from a text-typed
// column) into a plain int.
func scanInt(value interface{}) (int, error) {
	switch v := value.(type) {
	case int64:
		return int(v), nil
	case int:
		return v, nil
	case []byte:
		var i int
		if _, err := fmt.Sscanf(string(v), "%d", &i); err != nil {
			return 0, fmt.Errorf("not an integer: %q", v)
		}
		return i, nil
	case nil:
		return 0, fmt.Errorf("null value")
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}
}
