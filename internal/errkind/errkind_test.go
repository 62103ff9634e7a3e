package errkind

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindRootExecution, "root-execution"},
		{KindUserAborted, "user-aborted"},
		{KindPrivilegeUnavailable, "privilege-unavailable"},
		{KindUnsupportedPlatform, "unsupported-platform"},
		{KindPackageInstallFailed, "package-install-failed"},
		{KindCloneFailed, "clone-failed"},
		{KindUpdateConflict, "update-conflict"},
		{KindConfigureFailed, "configure-failed"},
		{KindCompileFailed, "compile-failed"},
		{KindInstallFailed, "install-failed"},
		{KindServeFailed, "serve-failed"},
		{KindUnknown, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	err := New(KindConfigureFailed, "cmake exited 1")
	if got := KindOf(err); got != KindConfigureFailed {
		t.Errorf("KindOf() = %v, want %v", got, KindConfigureFailed)
	}

	// Kind survives wrapping with %w.
	wrapped := fmt.Errorf("stage failed: %w", err)
	if got := KindOf(wrapped); got != KindConfigureFailed {
		t.Errorf("KindOf(wrapped) = %v, want %v", got, KindConfigureFailed)
	}

	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Errorf("KindOf(plain) = %v, want KindUnknown", got)
	}

	if got := KindOf(nil); got != KindUnknown {
		t.Errorf("KindOf(nil) = %v, want KindUnknown", got)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("exit status 2")
	err := Wrap(KindPackageInstallFailed, cause, "apt-get install gcc")

	if !errors.Is(err, cause) {
		t.Error("Wrap() lost the underlying cause")
	}
	if !Is(err, KindPackageInstallFailed) {
		t.Error("Is() = false, want true")
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(KindCompileFailed, nil, "ignored"); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
}

func TestErrorMessageIncludesClassification(t *testing.T) {
	err := Wrap(KindUpdateConflict, errors.New("non-fast-forward"), "llama.cpp checkout")
	msg := err.Error()
	if msg != "update-conflict: llama.cpp checkout: non-fast-forward" {
		t.Errorf("Error() = %q", msg)
	}
}
