package style

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestColorDisabled(t *testing.T) {
	old := NoColor
	NoColor = true
	defer func() { NoColor = old }()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"C", C(Red, "x"), "x"},
		{"B", B("x"), "x"},
		{"State sent", State("sent"), "sent"},
		{"Failure", Failure("Error"), "Error: "},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestStateColors(t *testing.T) {
	old := NoColor
	NoColor = false
	defer func() { NoColor = old }()

	if got := State("sent"); got != Green+"sent"+Reset {
		t.Errorf("State(sent) = %q", got)
	}
	if got := State("failed"); got != Red+"failed"+Reset {
		t.Errorf("State(failed) = %q", got)
	}
	if got := State("pending"); got != "pending" {
		t.Errorf("State(pending) = %q, want unstyled", got)
	}
}

func TestRpadStyled(t *testing.T) {
	old := NoColor
	NoColor = true
	defer func() { NoColor = old }()

	if got := rpadStyled("run", 6); got != "run   " {
		t.Errorf("rpadStyled = %q", got)
	}
}

func TestEnvVars(t *testing.T) {
	old := NoColor
	NoColor = true
	defer func() { NoColor = old }()

	cmd := &cobra.Command{Use: "run", Annotations: map[string]string{EnvAnnotation: "EMAIL_USERNAME CV_PATH"}}
	if got, want := envVars(cmd), "  $EMAIL_USERNAME\n  $CV_PATH\n"; got != want {
		t.Errorf("envVars = %q, want %q", got, want)
	}
	if got := envVars(&cobra.Command{Use: "x"}); got != "" {
		t.Errorf("envVars without annotation = %q", got)
	}
}
