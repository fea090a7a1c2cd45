package session

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func mustStat(t *testing.T, path string) os.FileInfo {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("failed to stat %s: %v", path, err)
	}
	return info
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestCredentials(t *testing.T) {
	t.Run("Missing File Yields Empty Credentials", func(t *testing.T) {
		creds, err := LoadCredentials(filepath.Join(t.TempDir(), "credentials.json"))
		if err != nil {
			t.Fatalf("LoadCredentials() error = %v", err)
		}
		if creds.Token != "" || creds.APIKey != "" {
			t.Errorf("expected empty credentials, got %+v", creds)
		}
	})

	t.Run("Save And Load Roundtrip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "credentials.json")

		creds := &Credentials{Token: "session_token", APIKey: "fallback_key"}
		if err := creds.Save(path); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		loaded, err := LoadCredentials(path)
		if err != nil {
			t.Fatalf("LoadCredentials() error = %v", err)
		}
		if loaded.Token != "session_token" || loaded.APIKey != "fallback_key" {
			t.Errorf("unexpected credentials %+v", loaded)
		}
	})

	t.Run("File Is User Readable Only", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("file modes not enforced on windows")
		}

		path := filepath.Join(t.TempDir(), "credentials.json")
		creds := &Credentials{APIKey: "secret"}
		if err := creds.Save(path); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		info := mustStat(t, path)
		if mode := info.Mode().Perm(); mode != 0600 {
			t.Errorf("expected mode 0600, got %o", mode)
		}
	})

	t.Run("Expired", func(t *testing.T) {
		creds := &Credentials{}
		if creds.Expired() {
			t.Error("zero expiry should never expire")
		}

		creds.Expiry = time.Now().Add(-time.Minute)
		if !creds.Expired() {
			t.Error("past expiry should report expired")
		}

		creds.Expiry = time.Now().Add(time.Minute)
		if creds.Expired() {
			t.Error("future expiry should not report expired")
		}
	})

	t.Run("Corrupt File Is An Error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "credentials.json")
		writeFile(t, path, "not json")

		if _, err := LoadCredentials(path); err == nil {
			t.Error("expected error for corrupt file")
		}
	})
}
