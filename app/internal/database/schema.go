package database

// EnsureSchema creates all necessary database tables
func EnsureSchema() error {
	_, err := DB.Exec(`
CREATE TABLE IF NOT EXISTS incidents (
  id TEXT PRIMARY KEY,
  monitor_id INTEGER NOT NULL,
  day TEXT NOT NULL,
  uptime REAL NOT NULL,
  note TEXT,
  created_at TEXT NOT NULL,
  UNIQUE(monitor_id, day)
);
CREATE INDEX IF NOT EXISTS idx_incidents_monitor_day ON incidents(monitor_id, day);

CREATE TABLE IF NOT EXISTS system_logs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  timestamp TEXT NOT NULL,
  level TEXT NOT NULL,
  category TEXT NOT NULL,
  monitor TEXT,
  message TEXT NOT NULL,
  details TEXT
);
CREATE INDEX IF NOT EXISTS idx_system_logs_timestamp ON system_logs(timestamp);
`)
	return err
}
