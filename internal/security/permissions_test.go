package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCreateSecureFile(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		filename string
		perm     os.FileMode
	}{
		{"config file", "hookbox.yaml", PermConfigFile},
		{"secret file", "webhook.secret", PermSecretFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, tt.filename)
			file, err := CreateSecureFile(path, tt.perm)
			if err != nil {
				t.Fatalf("CreateSecureFile() error = %v", err)
			}
			defer file.Close()

			info, err := os.Stat(path)
			if err != nil {
				t.Fatalf("File was not created: %v", err)
			}
			if info.Mode().Perm() != tt.perm {
				t.Errorf("File permissions = %04o, want %04o", info.Mode().Perm(), tt.perm)
			}
		})
	}
}

func TestCreateSecureFile_Overwrite(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "test.txt")

	if err := os.WriteFile(testFile, []byte("original content"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	file, err := CreateSecureFile(testFile, PermSecretFile)
	if err != nil {
		t.Fatalf("CreateSecureFile() failed: %v", err)
	}
	if _, err := file.WriteString("new content"); err != nil {
		file.Close()
		t.Fatalf("Failed to write to file: %v", err)
	}
	file.Close()

	content, err := os.ReadFile(testFile)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(content) != "new content" {
		t.Errorf("File content = %q, want %q", string(content), "new content")
	}

	info, _ := os.Stat(testFile)
	if info.Mode().Perm() != PermSecretFile {
		t.Errorf("File permissions = %04o, want %04o", info.Mode().Perm(), PermSecretFile)
	}
}

func TestOpenSecureAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "nested", "hookbox.log")

	for _, line := range []string{"first\n", "second\n"} {
		file, err := OpenSecureAppend(path, PermLogFile)
		if err != nil {
			t.Fatalf("OpenSecureAppend() error = %v", err)
		}
		if _, err := file.WriteString(line); err != nil {
			t.Fatalf("Failed to write: %v", err)
		}
		file.Close()
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log: %v", err)
	}
	if string(content) != "first\nsecond\n" {
		t.Errorf("Log content = %q, want both lines appended", content)
	}

	info, err := os.Stat(filepath.Dir(path))
	if err != nil {
		t.Fatalf("Log directory missing: %v", err)
	}
	if info.Mode().Perm() != PermDirectory {
		t.Errorf("Directory permissions = %04o, want %04o", info.Mode().Perm(), PermDirectory)
	}
}

func TestCreateSecureDir(t *testing.T) {
	tmpDir := t.TempDir()

	path := filepath.Join(tmpDir, "parent", "child")
	if err := CreateSecureDir(path, PermDirectory); err != nil {
		t.Fatalf("CreateSecureDir() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		t.Fatalf("Directory was not created: %v", err)
	}
	if info.Mode().Perm() != PermDirectory {
		t.Errorf("Directory permissions = %04o, want %04o", info.Mode().Perm(), PermDirectory)
	}

	// Existing directories keep their mode
	existing := filepath.Join(tmpDir, "existing")
	if err := os.Mkdir(existing, 0700); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := CreateSecureDir(existing, PermDirectory); err != nil {
		t.Fatalf("CreateSecureDir() error = %v", err)
	}
	info, _ = os.Stat(existing)
	if info.Mode().Perm() != 0700 {
		t.Errorf("Existing directory permissions changed to %04o", info.Mode().Perm())
	}

	// A file in the way is an error
	file := filepath.Join(tmpDir, "file")
	if err := os.WriteFile(file, nil, 0600); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	if err := CreateSecureDir(file, PermDirectory); err == nil {
		t.Error("Expected error when path is a file")
	}
}

func TestIsWorldReadableWritable(t *testing.T) {
	tests := []struct {
		perm     os.FileMode
		readable bool
		writable bool
	}{
		{0600, false, false},
		{0640, false, false},
		{0644, true, false},
		{0666, true, true},
		{0602, false, true},
		{0777, true, true},
	}

	for _, tt := range tests {
		if got := IsWorldReadable(tt.perm); got != tt.readable {
			t.Errorf("IsWorldReadable(%04o) = %v, want %v", tt.perm, got, tt.readable)
		}
		if got := IsWorldWritable(tt.perm); got != tt.writable {
			t.Errorf("IsWorldWritable(%04o) = %v, want %v", tt.perm, got, tt.writable)
		}
	}
}

func TestValidateSecurePermissions(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		perm    os.FileMode
		wantErr bool
	}{
		{"secure 0600", 0600, false},
		{"secure 0640", 0640, false},
		{"world readable 0644", 0644, true},
		{"world writable 0666", 0666, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testFile := filepath.Join(tmpDir, "test-"+tt.name+".yaml")
			if err := os.WriteFile(testFile, []byte("secret: x"), 0600); err != nil {
				t.Fatalf("Failed to create test file: %v", err)
			}
			// Chmod bypasses umask
			if err := os.Chmod(testFile, tt.perm); err != nil {
				t.Fatalf("Failed to chmod: %v", err)
			}

			err := ValidateSecurePermissions(testFile)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSecurePermissions() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSecurePermissions_NonexistentFile(t *testing.T) {
	if err := ValidateSecurePermissions("/nonexistent/hookbox.yaml"); err == nil {
		t.Error("ValidateSecurePermissions() should fail for nonexistent file")
	}
}
