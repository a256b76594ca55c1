package provider

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/kursadbilgin/hme-generator/internal/domain"
)

// LoadCookie returns the first line of the cookie file that is not a
// "//" comment. A missing file is reported as domain.ErrNotFound.
func LoadCookie(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: cookie file %q", domain.ErrNotFound, path)
		}
		return "", fmt.Errorf("failed to open cookie file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		return line, nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read cookie file: %w", err)
	}

	return "", fmt.Errorf("%w: cookie file %q has no cookie line", domain.ErrValidation, path)
}
