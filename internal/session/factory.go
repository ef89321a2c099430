package session

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/qrstage/qrstage/internal/config"
)

// NewBackend creates a session backend from configuration. Database-backed
// kinds require an open gorm connection.
func NewBackend(kind string, db *gorm.DB, memCfg config.MemoryConfig) (Backend, error) {
	switch kind {
	case "postgres", "sqlite":
		if db == nil {
			return nil, fmt.Errorf("%s session backend requires a database connection", kind)
		}
		return NewGormBackend(db), nil
	case "memory":
		return NewMemoryBackend(memCfg), nil
	default:
		return nil, fmt.Errorf("unknown session type: %s", kind)
	}
}
