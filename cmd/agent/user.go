package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var userIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,50}$`)

// ErrInvalidUserID reports a user id that fails validation.
var ErrInvalidUserID = errors.New("user id must be 1-50 characters of letters, digits, '_' or '-'")

func validateUserID(id string) error {
	if !userIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidUserID, id)
	}
	return nil
}

func lastUserPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".agent_memory", "last_user"), nil
}

// loadLastUser returns the previously used id, or "" when none is stored
// or the stored value is no longer valid.
func loadLastUser() string {
	path, err := lastUserPath()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	id := strings.TrimSpace(string(data))
	if !userIDPattern.MatchString(id) {
		return ""
	}
	return id
}

func saveLastUser(id string) error {
	path, err := lastUserPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(id+"\n"), 0o600)
}

// promptUser asks for a user id, offering the remembered one as default.
func promptUser(in io.Reader, out io.Writer) (string, error) {
	reader := bufio.NewReader(in)
	last := loadLastUser()

	for {
		if last != "" {
			fmt.Fprintf(out, "Who are you? [%s]: ", last)
		} else {
			fmt.Fprint(out, "Who are you? ")
		}

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		id := strings.TrimSpace(line)
		if id == "" && last != "" {
			return last, nil
		}
		if verr := validateUserID(id); verr != nil {
			fmt.Fprintln(out, verr)
			if err != nil {
				return "", err
			}
			continue
		}
		return id, nil
	}
}
