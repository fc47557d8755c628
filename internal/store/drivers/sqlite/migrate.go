package sqlite

import (
	"errors"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/internal/store/drivers/sqlite/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "modernc.org/sqlite"
)

// ApplyMigrations applies any pending migrations from the embedded schema.
// The migrate instance is not closed since that would close s.db too.
func (s *Store) ApplyMigrations() error {
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return err
	}

	source, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return err
	}

	instance, err := migrate.NewWithInstance("iofs", source, "", driver)
	if err != nil {
		return err
	}

	err = instance.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
