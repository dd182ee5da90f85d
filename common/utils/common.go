package utils

import (
	"os"
	"os/user"
	"path"
)

func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// FindProjectRoot walks up from startDir until it finds a go.mod file.
// Falls back to startDir when none is found.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for {
		if _, err := os.Stat(path.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parentDir := path.Dir(dir)
		if parentDir == dir {
			return startDir
		}
		dir = parentDir
	}
}
