package audit

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vxlanevpn/reconciler/pkg/model"
)

func TestEvent_New(t *testing.T) {
	event := NewEvent(model.ModeDistributeSymmetric)

	if event.Mode != model.ModeDistributeSymmetric {
		t.Errorf("Mode = %q, want %q", event.Mode, model.ModeDistributeSymmetric)
	}
	if event.ID == "" {
		t.Error("ID should not be empty")
	}
	if event.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestEvent_Chaining(t *testing.T) {
	event := NewEvent(model.ModeDistributeSymmetric).
		WithInitial(true).
		WithSuccess().
		WithDuration(time.Second).
		WithVlanCounts(1, 0, 0).
		WithVrfCounts(0, 0, 1)

	if !event.Initial {
		t.Error("Initial should be true")
	}
	if !event.Success {
		t.Error("Success should be true")
	}
	if event.Duration != time.Second {
		t.Errorf("Duration = %v", event.Duration)
	}
	if event.VlansAdded != 1 {
		t.Errorf("VlansAdded = %d, want 1", event.VlansAdded)
	}
	if event.VrfsChanged != 1 {
		t.Errorf("VrfsChanged = %d, want 1", event.VrfsChanged)
	}
}

func TestEvent_WithError(t *testing.T) {
	event := NewEvent(model.ModeDistributeSymmetric).WithError(errors.New("test error"))

	if event.Success {
		t.Error("Success should be false")
	}
	if event.Error != "test error" {
		t.Errorf("Error = %q", event.Error)
	}

	event2 := NewEvent(model.ModeDistributeSymmetric).WithError(nil)
	if event2.Success {
		t.Error("Success should be false even with nil error")
	}
	if event2.Error != "" {
		t.Errorf("Error should be empty with nil error, got %q", event2.Error)
	}
}

func TestEvent_WithRolledBack(t *testing.T) {
	event := NewEvent(model.ModeDistributeSymmetric).WithError(errors.New("boom")).WithRolledBack(true)
	if !event.RolledBack {
		t.Error("RolledBack should be true")
	}
}

func TestFileLogger_Basic(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.log")
	logger, err := NewFileLogger(logPath, RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	event := NewEvent(model.ModeDistributeSymmetric).WithInitial(true).WithSuccess()
	if err := logger.Log(event); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := logger.Query(Filter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].Mode != model.ModeDistributeSymmetric {
		t.Errorf("Mode = %q", events[0].Mode)
	}
}

func TestFileLogger_QueryFilters(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.log")
	logger, err := NewFileLogger(logPath, RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	events := []*Event{
		NewEvent(model.ModeDistributeSymmetric).WithSuccess(),
		NewEvent(model.ModeDistributeSymmetric).WithSuccess(),
		NewEvent(model.ModeDistributeSymmetric).WithError(errors.New("failed")).WithRolledBack(true),
	}
	for _, e := range events {
		if err := logger.Log(e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	t.Run("filter success only", func(t *testing.T) {
		results, _ := logger.Query(Filter{SuccessOnly: true})
		if len(results) != 2 {
			t.Errorf("Expected 2 successful events, got %d", len(results))
		}
	})

	t.Run("filter failure only", func(t *testing.T) {
		results, _ := logger.Query(Filter{FailureOnly: true})
		if len(results) != 1 {
			t.Errorf("Expected 1 failed event, got %d", len(results))
		}
	})

	t.Run("filter rolled back", func(t *testing.T) {
		results, _ := logger.Query(Filter{RolledBack: true})
		if len(results) != 1 {
			t.Errorf("Expected 1 rolled-back event, got %d", len(results))
		}
	})

	t.Run("filter with limit", func(t *testing.T) {
		results, _ := logger.Query(Filter{Limit: 2})
		if len(results) != 2 {
			t.Errorf("Expected 2 events with limit, got %d", len(results))
		}
	})

	t.Run("filter with offset", func(t *testing.T) {
		results, _ := logger.Query(Filter{Offset: 2})
		if len(results) != 1 {
			t.Errorf("Expected 1 event with offset, got %d", len(results))
		}
	})
}

func TestFileLogger_QueryTimeFilter(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.log")
	logger, err := NewFileLogger(logPath, RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	logger.Log(NewEvent(model.ModeDistributeSymmetric).WithSuccess())

	results, _ := logger.Query(Filter{
		StartTime: time.Now().Add(-time.Hour),
		EndTime:   time.Now().Add(time.Hour),
	})
	if len(results) != 1 {
		t.Errorf("Expected 1 event in time range, got %d", len(results))
	}

	results, _ = logger.Query(Filter{StartTime: time.Now().Add(time.Hour)})
	if len(results) != 0 {
		t.Errorf("Expected 0 events outside time range, got %d", len(results))
	}
}

func TestFileLogger_NonExistentFile(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "nonexistent", "audit.log")
	logger, err := NewFileLogger(logPath, RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger should create directories: %v", err)
	}
	defer logger.Close()
}

func TestFileLogger_QueryNonExistent(t *testing.T) {
	tmpDir := t.TempDir()
	logger, err := NewFileLogger(filepath.Join(tmpDir, "other.log"), RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	os.Remove(logger.path)

	results, err := logger.Query(Filter{})
	if err != nil {
		t.Errorf("Query on non-existent should not error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected 0 events, got %d", len(results))
	}
}

func TestDefaultLogger(t *testing.T) {
	SetDefaultLogger(nil)

	if err := Log(NewEvent(model.ModeDistributeSymmetric)); err != nil {
		t.Errorf("Log with nil default should not error: %v", err)
	}
	results, err := Query(Filter{})
	if err != nil {
		t.Errorf("Query with nil default should not error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected 0 results, got %d", len(results))
	}

	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.log")
	logger, err := NewFileLogger(logPath, RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	SetDefaultLogger(logger)
	if err := Log(NewEvent(model.ModeDistributeSymmetric).WithSuccess()); err != nil {
		t.Errorf("Log failed: %v", err)
	}
	results, err = Query(Filter{})
	if err != nil {
		t.Errorf("Query failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("Expected 1 result, got %d", len(results))
	}

	SetDefaultLogger(nil)
}

func TestFileLogger_LogRotation(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.log")
	logger, err := NewFileLogger(logPath, RotationConfig{MaxSize: 100, MaxBackups: 2})
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	for i := 0; i < 5; i++ {
		event := NewEvent(model.ModeDistributeSymmetric).WithSuccess()
		if err := logger.Log(event); err != nil {
			t.Fatalf("Log failed on iteration %d: %v", i, err)
		}
	}

	matches, err := filepath.Glob(filepath.Join(tmpDir, "audit.log.*"))
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	if len(matches) == 0 {
		t.Error("Expected rotation to create backup files")
	}
}

func TestFileLogger_RotationWithCleanup(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.log")
	logger, err := NewFileLogger(logPath, RotationConfig{MaxSize: 50, MaxBackups: 2})
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	for i := 0; i < 10; i++ {
		if err := logger.Log(NewEvent(model.ModeDistributeSymmetric)); err != nil {
			t.Fatalf("Log failed on iteration %d: %v", i, err)
		}
	}

	matches, err := filepath.Glob(filepath.Join(tmpDir, "audit.log.*"))
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	if len(matches) > 2 {
		t.Errorf("Expected at most 2 backup files, got %d", len(matches))
	}
}

func TestFileLogger_NewFileLoggerMkdirError(t *testing.T) {
	_, err := NewFileLogger("/dev/null/impossible/audit.log", RotationConfig{})
	if err == nil {
		t.Error("NewFileLogger should fail when directory creation fails")
	}
}

func TestFileLogger_NewFileLoggerOpenError(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.log")
	if err := os.Mkdir(logPath, 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	_, err := NewFileLogger(logPath, RotationConfig{})
	if err == nil {
		t.Error("NewFileLogger should fail when log path is a directory")
	}
}

func TestFileLogger_QueryMalformedJSON(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.log")

	content := `{"mode":"distribute-symmetric","success":true}
invalid json line
{"mode":"distribute-symmetric","success":true}
`
	if err := os.WriteFile(logPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test data: %v", err)
	}

	logger, err := NewFileLogger(logPath, RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	results, err := logger.Query(Filter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Expected 2 valid events (skipping malformed), got %d", len(results))
	}
}

func TestFileLogger_QueryOffsetBeyondEvents(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.log")
	logger, err := NewFileLogger(logPath, RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	for i := 0; i < 3; i++ {
		logger.Log(NewEvent(model.ModeDistributeSymmetric).WithSuccess())
	}

	results, err := logger.Query(Filter{Offset: 10})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected 0 events with offset beyond total, got %d", len(results))
	}
}

func TestFileLogger_CloseNilFile(t *testing.T) {
	logger := &FileLogger{path: "/tmp/test.log", file: nil}
	if err := logger.Close(); err != nil {
		t.Errorf("Close() with nil file should not error: %v", err)
	}
}

func TestFileLogger_QueryReadError(t *testing.T) {
	tmpDir := t.TempDir()
	logDir := filepath.Join(tmpDir, "audit.log")
	if err := os.Mkdir(logDir, 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}

	realLogPath := filepath.Join(tmpDir, "real.log")
	logger, err := NewFileLogger(realLogPath, RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	logger.path = logDir
	if _, err := logger.Query(Filter{}); err == nil {
		t.Error("Query should fail when trying to read a directory")
	}
}
