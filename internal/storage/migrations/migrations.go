package migrations

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"github.com/gravadigital/eventsoft-api/internal/logger"
)

var ErrNothingToRollback = errors.New("no migrations to roll back")

// Migration is one versioned schema change. IDs sort lexically in apply order.
type Migration struct {
	ID   string
	Name string
	Up   func(*gorm.DB) error
	Down func(*gorm.DB) error
}

// All lists the eventsoft schema in apply order
func All() []Migration {
	return []Migration{
		{ID: "001", Name: "create_extensions", Up: migration001Up, Down: migration001Down},
		{ID: "002", Name: "create_core_tables", Up: migration002Up, Down: migration002Down},
		{ID: "003", Name: "create_search_indexes", Up: migration003Up, Down: migration003Down},
		{ID: "004", Name: "create_constraints_and_triggers", Up: migration004Up, Down: migration004Down},
	}
}

// Status reports whether a migration has been applied and when
type Status struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}

// Migrator applies and rolls back migrations, tracked in schema_migrations
type Migrator struct {
	db         *gorm.DB
	log        *log.Logger
	migrations []Migration
}

func NewMigrator(db *gorm.DB) *Migrator {
	return &Migrator{db: db, log: logger.Migration(), migrations: All()}
}

// WithMigrations replaces the migration list
func (m *Migrator) WithMigrations(list []Migration) *Migrator {
	m.migrations = list
	return m
}

type appliedRow struct {
	ID        string
	AppliedAt time.Time
}

func (m *Migrator) ensureTable() error {
	err := m.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		id VARCHAR(10) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		applied_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	)`).Error
	if err != nil {
		return fmt.Errorf("Migrator.ensureTable -> %w", err)
	}
	return nil
}

// Applied returns the IDs recorded in schema_migrations
func (m *Migrator) Applied() (map[string]bool, error) {
	if err := m.ensureTable(); err != nil {
		return nil, err
	}
	var ids []string
	if err := m.db.Raw("SELECT id FROM schema_migrations").Scan(&ids).Error; err != nil {
		return nil, fmt.Errorf("Migrator.Applied -> %w", err)
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// Up applies every pending migration, each in its own transaction
func (m *Migrator) Up() error {
	done, err := m.Applied()
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if done[mig.ID] {
			m.log.Debug("Migration already applied", "id", mig.ID, "name", mig.Name)
			continue
		}

		m.log.Info("Applying migration", "id", mig.ID, "name", mig.Name)
		err := m.db.Transaction(func(tx *gorm.DB) error {
			if err := mig.Up(tx); err != nil {
				return fmt.Errorf("migration %s: %w", mig.ID, err)
			}
			return tx.Exec("INSERT INTO schema_migrations (id, name) VALUES (?, ?)", mig.ID, mig.Name).Error
		})
		if err != nil {
			return err
		}
	}

	m.log.Info("Schema is up to date", "migrations", len(m.migrations))
	return nil
}

// Down rolls back the applied migration with the highest ID
func (m *Migrator) Down() error {
	done, err := m.Applied()
	if err != nil {
		return err
	}

	var target *Migration
	for i := len(m.migrations) - 1; i >= 0; i-- {
		if done[m.migrations[i].ID] {
			target = &m.migrations[i]
			break
		}
	}
	if target == nil {
		return ErrNothingToRollback
	}

	m.log.Info("Rolling back migration", "id", target.ID, "name", target.Name)
	return m.db.Transaction(func(tx *gorm.DB) error {
		if err := target.Down(tx); err != nil {
			return fmt.Errorf("rollback %s: %w", target.ID, err)
		}
		return tx.Exec("DELETE FROM schema_migrations WHERE id = ?", target.ID).Error
	})
}

// Status lists every known migration with its apply time
func (m *Migrator) Status() ([]Status, error) {
	if err := m.ensureTable(); err != nil {
		return nil, err
	}
	var rows []appliedRow
	if err := m.db.Raw("SELECT id, applied_at FROM schema_migrations").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("Migrator.Status -> %w", err)
	}
	done := make(map[string]time.Time, len(rows))
	for _, r := range rows {
		done[r.ID] = r.AppliedAt
	}

	out := make([]Status, 0, len(m.migrations))
	for _, mig := range m.migrations {
		s := Status{ID: mig.ID, Name: mig.Name}
		if at, ok := done[mig.ID]; ok {
			s.AppliedAt = &at
		}
		out = append(out, s)
	}
	return out, nil
}
