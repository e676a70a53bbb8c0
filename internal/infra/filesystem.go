package infra

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
)

// GetWorkDir expands base (which may start with ~), appends path and makes sure the directory exists.
func GetWorkDir(base string, path ...string) (string, error) {
	parts := append([]string{base}, path...)
	workDir, err := homedir.Expand(filepath.Join(parts...))
	if err != nil {
		return "", fmt.Errorf("expand work dir: %w", err)
	}
	if err = os.MkdirAll(workDir, 0o755); err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	log.WithField("path", workDir).Trace("work dir ready")
	return workDir, nil
}
