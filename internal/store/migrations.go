package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Recordings table - one row per finalized recording session
		`CREATE TABLE IF NOT EXISTS recordings (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			sentence TEXT NOT NULL,
			composed_sentence TEXT NOT NULL DEFAULT '',
			words TEXT NOT NULL DEFAULT '[]',
			total_signs INTEGER NOT NULL DEFAULT 0,
			overall_confidence REAL NOT NULL DEFAULT 0,
			completed_at DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_recordings_session_id ON recordings(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_recordings_completed_at ON recordings(completed_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
