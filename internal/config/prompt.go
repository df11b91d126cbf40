package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidChoice  = errors.New("invalid input, please enter 1 or 2")
	ErrFolderNotFound = errors.New("folder does not exist")
)

// ChooseFolder asks whether to monitor the configured default folder or a custom one
// and returns the resolved absolute path.
func ChooseFolder(in io.Reader, out io.Writer, defaultFolder string) (string, error) {
	scanner := bufio.NewScanner(in)

	fmt.Fprintf(out, "Choose the type of monitoring:\n")
	fmt.Fprintf(out, "  1 - Default folder monitoring : %s\n", defaultFolder)
	fmt.Fprintf(out, "  2 - Custom folder monitoring\n")
	fmt.Fprintf(out, "Option: ")

	switch readLine(scanner) {
	case "1":
		return ResolveFolder(defaultFolder)
	case "2":
		fmt.Fprintf(out, "Custom folder path (eg. C:/PDFs): ")
		return ResolveFolder(readLine(scanner))
	default:
		return "", ErrInvalidChoice
	}
}

// ResolveFolder makes path absolute and checks that it names an existing directory.
func ResolveFolder(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: no folder configured", ErrFolderNotFound)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrFolderNotFound, abs)
		}
		return "", fmt.Errorf("failed to stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrFolderNotFound, abs)
	}
	return abs, nil
}

func readLine(scanner *bufio.Scanner) string {
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}
