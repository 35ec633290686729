package cmdutil

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestRun(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		opts    ExecOptions
		cmd     []string
		wantErr bool
	}{
		{"successful command", ExecOptions{}, []string{"echo", "hello"}, false},
		{"command that fails", ExecOptions{}, []string{"ls", "/nonexistent/directory/path"}, true},
		{"empty command", ExecOptions{}, []string{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Run(ctx, tt.opts, tt.cmd)
			if (err != nil) != tt.wantErr {
				t.Errorf("Run() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if result == nil {
				t.Fatal("Run() returned nil result")
			}
			if !tt.wantErr && result.Duration == 0 {
				t.Error("Run() did not record execution duration")
			}
		})
	}
}

func TestRun_ExitCode(t *testing.T) {
	result, err := Run(context.Background(), ExecOptions{}, []string{"sh", "-c", "exit 3"})
	if err == nil {
		t.Fatal("Run() should return error for non-zero exit")
	}
	if result.ExitCode != 3 {
		t.Errorf("Result.ExitCode = %d, want 3", result.ExitCode)
	}
	if result.TimedOut {
		t.Error("Result.TimedOut should be false for a normal exit")
	}
}

func TestRun_Timeout(t *testing.T) {
	result, err := Run(context.Background(), ExecOptions{Timeout: 100 * time.Millisecond}, []string{"sleep", "5"})
	if err == nil {
		t.Fatal("Run() should time out for long command")
	}
	if !result.TimedOut {
		t.Error("Result.TimedOut should be set")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("error = %v, want timeout error", err)
	}
}

func TestRun_Options(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()

	t.Run("working directory", func(t *testing.T) {
		result, err := Run(ctx, ExecOptions{Dir: tmpDir}, []string{"pwd"})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if !strings.Contains(string(result.Output), tmpDir) {
			t.Errorf("Output = %q, want it to contain %q", result.Output, tmpDir)
		}
	})

	t.Run("environment", func(t *testing.T) {
		result, err := Run(ctx, ExecOptions{Env: []string{"TEST_VAR=test_value"}}, []string{"env"})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if !strings.Contains(string(result.Output), "TEST_VAR=test_value") {
			t.Error("Run() did not set environment variable")
		}
	})

	t.Run("stdin", func(t *testing.T) {
		result, err := Run(ctx, ExecOptions{Stdin: []byte(`{"ref":"refs/heads/main"}`)}, []string{"cat"})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if string(result.Output) != `{"ref":"refs/heads/main"}` {
			t.Errorf("Output = %q, want stdin echoed back", result.Output)
		}
	})
}

func TestParseCommandList(t *testing.T) {
	tests := []struct {
		name    string
		input   interface{}
		want    []string
		wantErr bool
	}{
		{"string format", "deploy.sh --fast", []string{"deploy.sh", "--fast"}, false},
		{"quoted string", `notify.sh "build done"`, []string{"notify.sh", "build done"}, false},
		{"list format ([]interface{})", []interface{}{"deploy.sh", "--fast"}, []string{"deploy.sh", "--fast"}, false},
		{"list format ([]string)", []string{"deploy.sh"}, []string{"deploy.sh"}, false},
		{"empty string", "", nil, true},
		{"unterminated quote", `echo "oops`, nil, true},
		{"empty list", []string{}, nil, true},
		{"nil", nil, nil, true},
		{"invalid type", 123, nil, true},
		{"list with non-string element", []interface{}{"deploy.sh", 123}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommandList(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseCommandList() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && strings.Join(got, "\x00") != strings.Join(tt.want, "\x00") {
				t.Errorf("ParseCommandList() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatCommand(t *testing.T) {
	tests := []struct {
		input []string
		want  string
	}{
		{[]string{"deploy.sh", "--fast"}, "deploy.sh --fast"},
		{[]string{"notify.sh", "build done"}, `notify.sh 'build done'`},
		{[]string{"deploy.sh", ""}, `deploy.sh ''`},
		{[]string{}, "<empty command>"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatCommand(tt.input); got != tt.want {
				t.Errorf("FormatCommand() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeOutput(t *testing.T) {
	got := SanitizeOutput([]byte("token=s3cret other=s3cret"), []string{"s3cret", ""})
	want := "token=" + RedactedPlaceholder + " other=" + RedactedPlaceholder
	if string(got) != want {
		t.Errorf("SanitizeOutput() = %q, want %q", got, want)
	}
}
