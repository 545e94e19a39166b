package residents

import (
	"database/sql"

	"github.com/HerbHall/havenwatch/internal/store"
)

func migrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "create residents and resident_access tables",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS residents (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						first_name TEXT NOT NULL,
						last_name TEXT NOT NULL,
						date_of_birth DATETIME NOT NULL,
						gender TEXT NOT NULL CHECK (gender IN ('MALE', 'FEMALE', 'OTHER')),
						address TEXT NOT NULL DEFAULT '',
						emergency_contact TEXT NOT NULL DEFAULT '',
						emergency_phone TEXT NOT NULL DEFAULT '',
						medical_conditions TEXT NOT NULL DEFAULT '',
						medications TEXT NOT NULL DEFAULT '',
						allergies TEXT NOT NULL DEFAULT '',
						created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE INDEX IF NOT EXISTS idx_residents_name ON residents(last_name, first_name)`,

					`CREATE TABLE IF NOT EXISTS resident_access (
						user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
						resident_id INTEGER NOT NULL REFERENCES residents(id) ON DELETE CASCADE,
						PRIMARY KEY (user_id, resident_id)
					)`,
					`CREATE INDEX IF NOT EXISTS idx_resident_access_resident ON resident_access(resident_id)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
