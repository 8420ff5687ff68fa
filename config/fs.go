package config

import (
	"os"

	"github.com/joho/godotenv"
)

// FileSystem abstracts the file operations the loader performs, so tests
// can run against an in-memory tree.
type FileSystem interface {
	Exists(path string) bool
	ReadFile(path string) ([]byte, error)
	LoadEnv(path string) error
	UserHomeDir() (string, error)
}

// OSFileSystem implements FileSystem using the real filesystem.
type OSFileSystem struct{}

func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (OSFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

func (OSFileSystem) UserHomeDir() (string, error) {
	return os.UserHomeDir()
}
