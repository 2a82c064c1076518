package server

// migrate runs database migrations
func (s *Server) migrate() error {
	migrations := []string{
		migrationTasks,
		migrationIntents,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}

	return nil
}

const migrationTasks = `
CREATE TABLE IF NOT EXISTS tasks (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    client_id TEXT UNIQUE NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    completed BOOLEAN NOT NULL DEFAULT FALSE,
    is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_updated ON tasks(updated_at);
`

// Processed intents are remembered so a replayed client_id settles to
// the same outcome instead of reapplying the mutation.
const migrationIntents = `
CREATE TABLE IF NOT EXISTS sync_intents (
    id TEXT PRIMARY KEY,
    task_client_id TEXT NOT NULL,
    server_id UUID,
    received_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
