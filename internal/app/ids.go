package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var (
	// ErrInvalidID is returned for arguments that are neither an id nor a
	// Drive URL.
	ErrInvalidID = errors.New("not a Drive id or URL")
	// ErrNoIDs is returned when stdin held no ids.
	ErrNoIDs = errors.New("no ids given")
)

var (
	fileURL   = regexp.MustCompile(`google\.com/(?:\w+/)*d/([a-zA-Z0-9_-]+)`)
	folderURL = regexp.MustCompile(`google\.com/drive/(?:u/\d+/)?folders/([a-zA-Z0-9_-]+)`)
	openURL   = regexp.MustCompile(`google\.com/.*[?&]id=([a-zA-Z0-9_-]+)`)
	rawID     = regexp.MustCompile(`^[a-zA-Z0-9_-]{10,}$`)
)

// parseID retrieves the id from a raw id or one of the Drive URL forms
// "/file/d/<id>/", "/open?id=<id>" and "/drive/folders/<id>".
func parseID(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, r := range []*regexp.Regexp{folderURL, fileURL, openURL} {
		if m := r.FindStringSubmatch(s); m != nil {
			return m[1], nil
		}
	}
	if rawID.MatchString(s) {
		return s, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrInvalidID)
}

// readIDs reads one id per line until EOF or a line "end". Blank lines are
// ignored.
func readIDs(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "end" {
			break
		}
		if line != "" {
			ids = append(ids, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrNoIDs
	}
	return ids, nil
}
