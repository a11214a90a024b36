package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var ErrExportIOFailure = errors.New("export I/O failure")

func exportErr(msg string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrExportIOFailure, msg, err)
}

// writeFileAtomic streams into a temp file beside path and renames it into
// place only after write, fsync and close all succeeded. On failure the temp
// file is removed and path is left as it was.
func writeFileAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return exportErr("failed to create export directory", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return exportErr("failed to create temp file", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err = write(tmp); err != nil {
		if errors.Is(err, ErrExportIOFailure) {
			return err
		}
		return exportErr("failed to write export", err)
	}
	if err = tmp.Sync(); err != nil {
		return exportErr("failed to sync export", err)
	}
	if err = tmp.Close(); err != nil {
		return exportErr("failed to close export", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return exportErr("failed to finalize export", err)
	}

	return nil
}
