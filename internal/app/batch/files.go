package batch

import (
	"errors"
	"io/fs"
	"os"
	"strings"
)

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// removeIfExists deletes path, treating a missing file as success.
func removeIfExists(path string) (bool, error) {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func writeLines(path string, lines []string, perm os.FileMode) error {
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), perm)
}

func readText(path string) (string, error) {
	b, err := os.ReadFile(path)
	return string(b), err
}
