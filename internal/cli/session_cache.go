package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/themainfun/waymark/internal/remote"
)

// sessionCache persists the signed-in session between CLI invocations
// so publish can run authenticated after login.
//
// Tokens are cached as a plain JSON file under the user config dir
// (override with WAYMARK_CONFIG_DIR, used by tests).

func sessionCachePath() (string, error) {
	dir := os.Getenv("WAYMARK_CONFIG_DIR")
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("locate config dir: %w", err)
		}
		dir = filepath.Join(base, "waymark")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return filepath.Join(dir, "session.json"), nil
}

// saveSession writes the session to the cache file.
func saveSession(session *remote.Session) error {
	path, err := sessionCachePath()
	if err != nil {
		return err
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write session cache: %w", err)
	}
	return nil
}

// loadSession reads the cached session. Returns (nil, nil) when no
// session is cached.
func loadSession() (*remote.Session, error) {
	path, err := sessionCachePath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session cache: %w", err)
	}
	var session remote.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session cache: %w", err)
	}
	return &session, nil
}

// clearSession removes the cache file. Missing file is not an error.
func clearSession() error {
	path, err := sessionCachePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session cache: %w", err)
	}
	return nil
}
