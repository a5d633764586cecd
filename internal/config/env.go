package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnvFile copies variables from a dotenv file into the process
// environment without overriding variables that are already set. A missing
// file is not an error; the returned bool reports whether one was read.
func LoadEnvFile(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	expanded, err := expandPath(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(expanded); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat env file: %w", err)
	}
	if err := godotenv.Load(expanded); err != nil {
		return false, fmt.Errorf("load env file %s: %w", expanded, err)
	}
	return true, nil
}
