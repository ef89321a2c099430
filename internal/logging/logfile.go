package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// OpenLogFile creates the logs directory if needed and opens a timestamped
// log file in it for appending.
func OpenLogFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("error creating logs directory: %v", err)
	}
	name := fmt.Sprintf("qrstage_%s.log", time.Now().UTC().Format("2006-01-02_150405"))
	file, err := os.OpenFile(filepath.Join(dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("error opening log file: %v", err)
	}
	return file, nil
}
