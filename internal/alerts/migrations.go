package alerts

import (
	"database/sql"

	"github.com/HerbHall/havenwatch/internal/store"
)

func migrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "create alerts table",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS alerts (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						resident_id INTEGER NOT NULL REFERENCES residents(id) ON DELETE CASCADE,
						alert_type TEXT NOT NULL CHECK (alert_type IN ('HEALTH', 'ENVIRONMENT', 'SYSTEM')),
						severity TEXT NOT NULL CHECK (severity IN ('LOW', 'MEDIUM', 'HIGH', 'CRITICAL')),
						message TEXT NOT NULL,
						status TEXT NOT NULL DEFAULT 'ACTIVE' CHECK (status IN ('ACTIVE', 'ACKNOWLEDGED', 'RESOLVED')),
						created_at DATETIME NOT NULL,
						resolved_at DATETIME,
						resolved_by INTEGER REFERENCES users(id) ON DELETE SET NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status)`,
					`CREATE INDEX IF NOT EXISTS idx_alerts_resident_status ON alerts(resident_id, status)`,
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
