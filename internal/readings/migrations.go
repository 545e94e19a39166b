package readings

import (
	"database/sql"

	"github.com/HerbHall/havenwatch/internal/store"
)

func migrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "create health_readings and environment_readings tables",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS health_readings (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						resident_id INTEGER NOT NULL REFERENCES residents(id) ON DELETE CASCADE,
						heart_rate INTEGER NOT NULL,
						blood_pressure TEXT NOT NULL,
						blood_oxygen INTEGER NOT NULL,
						timestamp DATETIME NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_health_resident_time ON health_readings(resident_id, timestamp)`,

					`CREATE TABLE IF NOT EXISTS environment_readings (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						resident_id INTEGER NOT NULL REFERENCES residents(id) ON DELETE CASCADE,
						room_temperature REAL NOT NULL,
						humidity INTEGER NOT NULL,
						air_quality INTEGER NOT NULL,
						gas_level INTEGER NOT NULL,
						timestamp DATETIME NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_environment_resident_time ON environment_readings(resident_id, timestamp)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			Version:     2,
			Description: "index readings by timestamp for retention",
			Up: func(tx *sql.Tx) error {
				for _, stmt := range []string{
					`CREATE INDEX IF NOT EXISTS idx_health_time ON health_readings(timestamp)`,
					`CREATE INDEX IF NOT EXISTS idx_environment_time ON environment_readings(timestamp)`,
				} {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
