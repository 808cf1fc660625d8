package scraper

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	apperrors "surveytracker/internal/errors"
)

// ParseURLList reads one export URL per line. Blank lines and lines starting
// with '#' are skipped; anything else must be an absolute http(s) URL.
func ParseURLList(r io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if !isHTTPURL(text) {
			return nil, apperrors.NewAppValidationError(fmt.Sprintf("line %d: %q is not an http(s) url", line, text)).
				WithContext("line", line)
		}
		urls = append(urls, text)
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.NewParsingError("failed to read url list", err)
	}
	return urls, nil
}
