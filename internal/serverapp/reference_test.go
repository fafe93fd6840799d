package serverapp

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"relique/internal/config"
	"relique/internal/metrics"
	"relique/internal/rsync"
	"relique/internal/store"
)

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	db, err := store.Open(store.Config{DSN: ":memory:", Logger: zap.NewNop(), LogLevel: gormlogger.Silent})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg, "server")
	cfg := config.Default()
	return New("unused.toml", &cfg, db, rsync.NewEngine(), m, reg, zap.NewNop())
}

func TestResolveReference(t *testing.T) {
	ctx := context.Background()

	t.Run("full backup always resolves to /dev/null", func(t *testing.T) {
		d := newTestDaemon(t)
		job := &store.Job{
			BackupType: store.BackupTypeFull,
			Client:     store.Client{Name: "alpha"},
			Module:     store.Module{ModuleType: "files"},
		}
		got, err := d.resolveReference(ctx, job)
		if err != nil {
			t.Fatalf("resolveReference: %v", err)
		}
		if got != devNull {
			t.Fatalf("got %q, want %q", got, devNull)
		}
	})

	t.Run("diff backup with no prior full job is rewritten to full", func(t *testing.T) {
		d := newTestDaemon(t)
		client := &store.Client{Name: "alpha"}
		module := &store.Module{Name: "etc", ModuleType: "files"}
		registered, err := d.jobs.Register(ctx, "diff-job", store.JobStatusPending, store.BackupTypeDiff, client, module)
		if err != nil {
			t.Fatalf("Register: %v", err)
		}

		got, err := d.resolveReference(ctx, registered)
		if err != nil {
			t.Fatalf("resolveReference: %v", err)
		}
		if got != devNull {
			t.Fatalf("got %q, want %q", got, devNull)
		}
		if registered.BackupType != store.BackupTypeFull {
			t.Fatalf("expected in-memory job to be rewritten to Full, got %v", registered.BackupType)
		}

		persisted, err := d.jobs.GetByUUID(ctx, "diff-job")
		if err != nil {
			t.Fatalf("GetByUUID: %v", err)
		}
		if persisted.BackupType != store.BackupTypeFull {
			t.Fatalf("expected persisted job to be rewritten to Full, got %v", persisted.BackupType)
		}
	})

	t.Run("diff backup with a prior done full job references it", func(t *testing.T) {
		d := newTestDaemon(t)
		client := &store.Client{Name: "alpha"}
		module := &store.Module{Name: "etc", ModuleType: "files"}

		if _, err := d.jobs.Register(ctx, "full-job", store.JobStatusDone, store.BackupTypeFull, client, module); err != nil {
			t.Fatalf("Register full: %v", err)
		}

		diffJob, err := d.jobs.Register(ctx, "diff-job-2", store.JobStatusPending, store.BackupTypeDiff, client, module)
		if err != nil {
			t.Fatalf("Register diff: %v", err)
		}

		got, err := d.resolveReference(ctx, diffJob)
		if err != nil {
			t.Fatalf("resolveReference: %v", err)
		}
		if got != "full-job" {
			t.Fatalf("got %q, want full-job", got)
		}
	})
}

func TestReferencePath(t *testing.T) {
	d := newTestDaemon(t)

	t.Run("empty full job uuid yields /dev/null", func(t *testing.T) {
		if got := d.referencePath("/opt/relique", "alpha", "", "etc/hosts"); got != devNull {
			t.Fatalf("got %q, want %q", got, devNull)
		}
	})

	t.Run("non-empty full job uuid joins the storage path", func(t *testing.T) {
		got := d.referencePath("/opt/relique", "alpha", "full-1", "etc/hosts")
		want := "/opt/relique/alpha/full-1/etc/hosts"
		if got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	})
}

func TestTargetPath(t *testing.T) {
	got := targetPath("/opt/relique", "alpha", "job-1", "etc/hosts")
	want := "/opt/relique/alpha/job-1/etc/hosts"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestOpenBase(t *testing.T) {
	t.Run("missing file falls back to /dev/null", func(t *testing.T) {
		f, err := openBase("/nonexistent/path/for/relique/tests")
		if err != nil {
			t.Fatalf("openBase: %v", err)
		}
		defer f.Close()
		if f.Name() != devNull {
			t.Fatalf("got %q, want %q", f.Name(), devNull)
		}
	})
}
