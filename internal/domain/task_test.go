package domain

import (
	"errors"
	"testing"
)

func TestWithProgressDerivesStatus(t *testing.T) {
	t.Parallel()

	task := Task{Progress: 40, Status: TaskIncomplete}

	task, err := task.WithProgress(80)
	if err != nil {
		t.Fatalf("set progress 80: %v", err)
	}
	if task.Status != TaskIncomplete {
		t.Fatalf("raising progress below 100 must not change status, got %q", task.Status)
	}

	task, err = task.WithProgress(100)
	if err != nil {
		t.Fatalf("set progress 100: %v", err)
	}
	if task.Status != TaskComplete {
		t.Fatalf("progress 100 must force complete, got %q", task.Status)
	}

	task, err = task.WithProgress(60)
	if err != nil {
		t.Fatalf("set progress 60: %v", err)
	}
	if task.Status != TaskIncomplete {
		t.Fatalf("regressing below 100 from complete must force incomplete, got %q", task.Status)
	}
}

func TestWithProgressRejectsOutOfRange(t *testing.T) {
	t.Parallel()

	task := Task{Progress: 40, Status: TaskIncomplete}
	for _, bad := range []int{-1, 101, 150} {
		got, err := task.WithProgress(bad)
		if !errors.Is(err, ErrInvalidProgress) {
			t.Fatalf("progress %d: want ErrInvalidProgress, got %v", bad, err)
		}
		if got.Progress != 40 || got.Status != TaskIncomplete {
			t.Fatalf("progress %d: task must be unchanged on rejection", bad)
		}
	}
}

func TestToggleLeavesProgressAlone(t *testing.T) {
	t.Parallel()

	task := Task{Progress: 0, Status: TaskIncomplete}
	task = task.Toggle()
	if task.Status != TaskComplete || task.Progress != 0 {
		t.Fatalf("toggle must flip status without touching progress, got %q/%d", task.Status, task.Progress)
	}
	task = task.Toggle()
	if task.Status != TaskIncomplete {
		t.Fatalf("second toggle must flip back, got %q", task.Status)
	}
}

// Toggling a finished task to incomplete and then re-writing progress 100
// re-forces complete. The derivation rule deliberately wins on a progress write.
func TestProgressWriteAfterToggleReforcesComplete(t *testing.T) {
	t.Parallel()

	task := Task{Progress: 100, Status: TaskComplete}
	task = task.Toggle()
	if task.Status != TaskIncomplete {
		t.Fatalf("toggle from complete: got %q", task.Status)
	}
	task, err := task.WithProgress(100)
	if err != nil {
		t.Fatalf("rewrite progress 100: %v", err)
	}
	if task.Status != TaskComplete {
		t.Fatalf("progress write of 100 must re-force complete, got %q", task.Status)
	}
}

func TestValidatePriority(t *testing.T) {
	t.Parallel()

	if p, err := ValidatePriority(""); err != nil || p != PriorityMedium {
		t.Fatalf("empty priority must default to medium, got %q/%v", p, err)
	}
	if p, err := ValidatePriority("  HIGH "); err != nil || p != PriorityHigh {
		t.Fatalf("priority must normalize case and whitespace, got %q/%v", p, err)
	}
	if _, err := ValidatePriority("urgent"); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("unknown priority must be rejected, got %v", err)
	}
}
