package pipeline

import (
	"errors"
	"fmt"
	"testing"
)

func TestFailureError(t *testing.T) {
	failure := &Failure{Op: "profile", Stage: "filter_reads", Err: errors.New("disk full")}
	if got, want := failure.Error(), "profile: filter_reads: disk full"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestFailureErrorWithoutStage(t *testing.T) {
	failure := &Failure{Op: "compare", Err: errors.New("disk full")}
	if got, want := failure.Error(), "compare: disk full"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestFailureErrorEmpty(t *testing.T) {
	if got, want := (&Failure{}).Error(), "operation failed"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestFailPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := fail("profile", "write output tables", cause)

	if !errors.Is(err, cause) {
		t.Fatal("wrapped error lost its cause")
	}
	failure, ok := AsFailure(err)
	if !ok {
		t.Fatal("fail did not produce a Failure")
	}
	if failure.Stage != "write output tables" {
		t.Fatalf("Stage = %q", failure.Stage)
	}
	if got := err.Error(); got != "profile: write output tables: disk full" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestFailKeepsInnermostAttribution(t *testing.T) {
	inner := fail("profile", "profile_scaffolds", errors.New("boom"))
	outer := fail("profile", "", inner)

	if outer != inner {
		t.Fatal("fail rewrapped an existing Failure")
	}
	failure, _ := AsFailure(outer)
	if failure.Stage != "profile_scaffolds" {
		t.Fatalf("Stage = %q, want the inner stage", failure.Stage)
	}
}

func TestFailNil(t *testing.T) {
	if err := fail("profile", "anything", nil); err != nil {
		t.Fatalf("fail(nil) = %v", err)
	}
}

func TestAsFailureThroughWrapping(t *testing.T) {
	err := fmt.Errorf("outer context: %w", fail("plot", "emit figures", errors.New("boom")))
	failure, ok := AsFailure(err)
	if !ok {
		t.Fatal("AsFailure missed a wrapped Failure")
	}
	if failure.Op != "plot" {
		t.Fatalf("Op = %q", failure.Op)
	}
}

func TestAsFailurePlainError(t *testing.T) {
	if _, ok := AsFailure(errors.New("plain")); ok {
		t.Fatal("AsFailure matched a plain error")
	}
}
