package security

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// PermConfigFile is for the hookbox config, which usually holds the webhook secret.
	PermConfigFile os.FileMode = 0640

	// PermSecretFile is for files holding nothing but a secret.
	PermSecretFile os.FileMode = 0600

	// PermLogFile is for logs, which include repository names and script output.
	PermLogFile os.FileMode = 0640

	// PermDBFile is for the handler run history database.
	PermDBFile os.FileMode = 0640

	// PermDirectory is for directories hookbox creates for logs and history.
	PermDirectory os.FileMode = 0750
)

// CreateSecureFile creates (or truncates) a file with exactly perm, regardless of umask.
func CreateSecureFile(path string, perm os.FileMode) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return nil, fmt.Errorf("failed to create secure file: %w", err)
	}

	if err := os.Chmod(path, perm); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to set file permissions: %w", err)
	}

	return file, nil
}

// OpenSecureAppend opens path for appending, creating it and its parent
// directory when missing. Existing files keep their permissions.
func OpenSecureAppend(path string, perm os.FileMode) (*os.File, error) {
	if err := CreateSecureDir(filepath.Dir(path), PermDirectory); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, perm)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return file, nil
}

// CreateSecureDir creates path and its parents. Directories that already
// exist are left untouched.
func CreateSecureDir(path string, perm os.FileMode) error {
	if info, err := os.Stat(path); err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", path)
		}
		return nil
	}

	if err := os.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("failed to create secure directory: %w", err)
	}

	// MkdirAll is subject to umask
	if err := os.Chmod(path, perm); err != nil {
		return fmt.Errorf("failed to set directory permissions: %w", err)
	}

	return nil
}

// IsWorldReadable checks if a file is readable by others.
func IsWorldReadable(perm os.FileMode) bool {
	return perm&0004 != 0
}

// IsWorldWritable checks if a file is writable by others.
func IsWorldWritable(perm os.FileMode) bool {
	return perm&0002 != 0
}

// ValidateSecurePermissions returns an error when path is world-readable or
// world-writable. Used to warn about config files that hold a secret.
func ValidateSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	perm := info.Mode().Perm()

	if IsWorldWritable(perm) {
		return fmt.Errorf("file %s is world-writable (%04o)", path, perm)
	}

	if IsWorldReadable(perm) {
		return fmt.Errorf("file %s is world-readable (%04o)", path, perm)
	}

	return nil
}
