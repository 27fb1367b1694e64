package server

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrate applies schema migrations from dir against dsn. A no-change run is
// not an error.
func Migrate(dir string, dsn string, direction string, steps int) error {
	if dir == "" {
		dir = "file://migrations"
	}
	m, err := migrate.New(dir, dsn)
	if err != nil {
		return err
	}
	var migErr error
	switch direction {
	case "up":
		if steps > 0 {
			migErr = m.Steps(steps)
		} else {
			migErr = m.Up()
		}
	case "down":
		if steps > 0 {
			migErr = m.Steps(-steps)
		} else {
			migErr = m.Down()
		}
	default:
		return fmt.Errorf("unknown direction: %s", direction)
	}
	if errors.Is(migErr, migrate.ErrNoChange) {
		return nil
	}
	return migErr
}
