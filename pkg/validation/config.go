// Package validation provides configuration validation utilities.
package validation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/iwvelando/fi-dashboard/pkg/datetime"
)

// ValidateEventDate warns when an event falls after the end of the forecast
// horizon, where no chart can show it.
func ValidateEventDate(eventName, date, horizonEnd string) (string, error) {
	before, err := datetime.DateBeforeDate(horizonEnd, date)
	if err != nil {
		return "", err
	}
	if before {
		return fmt.Sprintf("Event '%s' is dated after the forecast horizon (%s > %s)", eventName, date, horizonEnd), nil
	}
	return "", nil
}

// ValidateDataPath warns when a dataset file is absent or is a directory.
func ValidateDataPath(label, path string) string {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Sprintf("%s data file not found at %s", label, path)
		}
		return fmt.Sprintf("%s data file is not readable at %s: %v", label, path, err)
	}
	if info.IsDir() {
		return fmt.Sprintf("%s data path %s is a directory", label, path)
	}
	return ""
}
