package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

const backupSuffix = ".bak"

// ReadJSONFile decodes the document at path into v. When the document is unreadable the last good
// backup is tried.
func ReadJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err == nil {
		if err = json.Unmarshal(data, v); err == nil {
			return nil
		}
	}
	backup, backupErr := os.ReadFile(path + backupSuffix)
	if backupErr != nil {
		return err
	}
	if jsonErr := json.Unmarshal(backup, v); jsonErr != nil {
		return fmt.Errorf("%v (backup: %w)", err, jsonErr)
	}
	return nil
}

// WriteJSONFile rewrites the whole document at path. The previous content is kept as a backup and
// restored when the new content cannot be written or read back.
func WriteJSONFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	previous, err := os.ReadFile(path)
	hasPrevious := err == nil
	if hasPrevious {
		if err = os.WriteFile(path+backupSuffix, previous, 0o644); err != nil {
			return fmt.Errorf("backup %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	err = os.WriteFile(path, data, 0o644)
	if err == nil {
		var written []byte
		written, err = os.ReadFile(path)
		if err == nil && !bytes.Equal(written, data) {
			err = fmt.Errorf("verify %s: content mismatch", path)
		}
	}
	if err != nil && hasPrevious {
		if restoreErr := os.WriteFile(path, previous, 0o644); restoreErr != nil {
			return fmt.Errorf("%v (restore: %w)", err, restoreErr)
		}
	}
	return err
}
