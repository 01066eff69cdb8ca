package util

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestPreconditionError(t *testing.T) {
	err := NewPreconditionError("apply", "eth1", "underlay must have IPv4", "no addresses found")

	msg := err.Error()
	if !strings.Contains(msg, "apply") {
		t.Errorf("Error message should contain operation: %s", msg)
	}
	if !strings.Contains(msg, "eth1") {
		t.Errorf("Error message should contain resource: %s", msg)
	}
	if !strings.Contains(msg, "underlay must have IPv4") {
		t.Errorf("Error message should contain precondition: %s", msg)
	}
	if !strings.Contains(msg, "no addresses found") {
		t.Errorf("Error message should contain details: %s", msg)
	}

	if !errors.Is(err, ErrPrecondition) {
		t.Errorf("PreconditionError should unwrap to ErrPrecondition")
	}
}

func TestPreconditionErrorNoDetails(t *testing.T) {
	err := NewPreconditionError("apply", "VRF", "VrfName required", "")
	msg := err.Error()
	if strings.HasSuffix(msg, "()") {
		t.Errorf("Error message should not have empty details: %s", msg)
	}
}

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := NewValidationError("VlanID out of range")
		msg := err.Error()
		if !strings.Contains(msg, "VlanID out of range") {
			t.Errorf("Error message should contain the error: %s", msg)
		}
		if !errors.Is(err, ErrConfigInvalid) {
			t.Errorf("ValidationError should unwrap to ErrConfigInvalid")
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := NewValidationError("field1 is required", "field2 is invalid", "field3 out of range")
		msg := err.Error()
		if !strings.Contains(msg, "field1") || !strings.Contains(msg, "field2") || !strings.Contains(msg, "field3") {
			t.Errorf("Error message should contain all errors: %s", msg)
		}
	})
}

func TestValidationBuilder(t *testing.T) {
	t.Run("no errors", func(t *testing.T) {
		v := &ValidationBuilder{}
		v.Add(true, "this should not appear")
		v.Add(true, "neither should this")

		if v.HasErrors() {
			t.Error("Should not have errors when all conditions are true")
		}
		if err := v.Build(); err != nil {
			t.Errorf("Build() should return nil when no errors: %v", err)
		}
	})

	t.Run("with errors", func(t *testing.T) {
		v := &ValidationBuilder{}
		v.Add(false, "first error")
		v.Add(true, "this passes")
		v.Add(false, "second error")
		v.AddError("unconditional error")
		v.AddErrorf("formatted error: %d", 42)

		if !v.HasErrors() {
			t.Error("Should have errors")
		}

		err := v.Build()
		if err == nil {
			t.Fatal("Build() should return error")
		}

		validationErr, ok := err.(*ValidationError)
		if !ok {
			t.Fatalf("Expected *ValidationError, got %T", err)
		}
		if len(validationErr.Errors) != 4 {
			t.Errorf("Expected 4 errors, got %d", len(validationErr.Errors))
		}
	})

	t.Run("chaining", func(t *testing.T) {
		err := (&ValidationBuilder{}).
			Add(false, "error1").
			Add(false, "error2").
			AddErrorf("error%d", 3).
			Build()

		if err == nil {
			t.Fatal("Expected error")
		}
		if !strings.Contains(err.Error(), "error1") {
			t.Errorf("Missing error1 in: %s", err.Error())
		}
	})
}

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		ErrConfigInvalid,
		ErrPrecondition,
		ErrKernelOp,
		ErrStorePersistence,
		ErrRollbackOp,
	}

	for i, err1 := range sentinels {
		for j, err2 := range sentinels {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("Sentinel errors should be distinct: %v == %v", err1, err2)
			}
		}
	}
}

func TestErrorsIsWrapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"PreconditionError", NewPreconditionError("op", "res", "pre", ""), ErrPrecondition},
		{"ValidationError", NewValidationError("msg"), ErrConfigInvalid},
		{"KernelError", NewKernelError("create-vxlan", "vxlan100", fmt.Errorf("file exists")), ErrKernelOp},
		{"StoreError", NewStoreError("write", "/var/lib/x/state.json", fmt.Errorf("disk full")), ErrStorePersistence},
		{"RollbackError", NewRollbackError("IfaceCreated(vxlan100)", fmt.Errorf("no such device")), ErrRollbackOp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("%s should wrap %v", tt.name, tt.sentinel)
			}
		})
	}
}

func TestKernelErrorMessage(t *testing.T) {
	err := NewKernelError("set-master", "vxlan100", fmt.Errorf("no such device"))
	msg := err.Error()
	if !strings.Contains(msg, "set-master") || !strings.Contains(msg, "vxlan100") || !strings.Contains(msg, "no such device") {
		t.Errorf("unexpected message: %s", msg)
	}
}
