package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:engine.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/assessment?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS activities (
  id TEXT PRIMARY KEY,
  course_id TEXT NOT NULL DEFAULT '',
  title TEXT NOT NULL,
  topic TEXT NOT NULL DEFAULT '',
  activity_type TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'draft',
  weight_multiplier INTEGER NOT NULL DEFAULT 1,
  time_limit_sec INTEGER NOT NULL DEFAULT 0,
  deadline INTEGER NOT NULL DEFAULT 0,
  assigned_week INTEGER NOT NULL DEFAULT 0,
  published_at INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL DEFAULT 0,
  questions_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS ix_activities_course_topic ON activities(course_id, topic, activity_type, status);

CREATE TABLE IF NOT EXISTS attempts (
  id TEXT PRIMARY KEY,
  activity_id TEXT NOT NULL REFERENCES activities(id),
  student_id TEXT NOT NULL,
  attempt_number INTEGER NOT NULL,
  status TEXT NOT NULL,
  started_at INTEGER NOT NULL,
  submitted_at INTEGER NOT NULL DEFAULT 0,
  score INTEGER NOT NULL DEFAULT 0,
  max_score INTEGER NOT NULL DEFAULT 0,
  UNIQUE (activity_id, student_id, attempt_number)
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_attempts_active
  ON attempts(activity_id, student_id) WHERE status='in_progress';
CREATE INDEX IF NOT EXISTS ix_attempts_student ON attempts(student_id, started_at);

CREATE TABLE IF NOT EXISTS attempt_answers (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  attempt_id TEXT NOT NULL REFERENCES attempts(id) ON DELETE CASCADE,
  question_id TEXT NOT NULL,
  selected_option INTEGER NOT NULL DEFAULT 0,
  text_answer TEXT NOT NULL DEFAULT '',
  is_correct INTEGER,
  points_awarded INTEGER,
  feedback TEXT NOT NULL DEFAULT '',
  graded_at INTEGER NOT NULL DEFAULT 0,
  UNIQUE (attempt_id, question_id)
);

CREATE TABLE IF NOT EXISTS remedial_assignments (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  activity_id TEXT NOT NULL REFERENCES activities(id),
  course_id TEXT NOT NULL DEFAULT '',
  topic TEXT NOT NULL DEFAULT '',
  assigned_at INTEGER NOT NULL,
  completed_at INTEGER NOT NULL DEFAULT 0,
  UNIQUE (student_id, activity_id)
);
CREATE INDEX IF NOT EXISTS ix_remedial_open ON remedial_assignments(student_id, course_id, topic, completed_at);

CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'student'
);

CREATE TABLE IF NOT EXISTS event_log (
  "offset" INTEGER PRIMARY KEY AUTOINCREMENT,
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS activities (
  id TEXT PRIMARY KEY,
  course_id TEXT NOT NULL DEFAULT '',
  title TEXT NOT NULL,
  topic TEXT NOT NULL DEFAULT '',
  activity_type TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'draft',
  weight_multiplier INTEGER NOT NULL DEFAULT 1,
  time_limit_sec INTEGER NOT NULL DEFAULT 0,
  deadline BIGINT NOT NULL DEFAULT 0,
  assigned_week INTEGER NOT NULL DEFAULT 0,
  published_at BIGINT NOT NULL DEFAULT 0,
  created_at BIGINT NOT NULL DEFAULT 0,
  questions_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS ix_activities_course_topic ON activities(course_id, topic, activity_type, status);

CREATE TABLE IF NOT EXISTS attempts (
  id TEXT PRIMARY KEY,
  activity_id TEXT NOT NULL REFERENCES activities(id),
  student_id TEXT NOT NULL,
  attempt_number INTEGER NOT NULL,
  status TEXT NOT NULL,
  started_at BIGINT NOT NULL,
  submitted_at BIGINT NOT NULL DEFAULT 0,
  score INTEGER NOT NULL DEFAULT 0,
  max_score INTEGER NOT NULL DEFAULT 0,
  UNIQUE (activity_id, student_id, attempt_number)
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_attempts_active
  ON attempts(activity_id, student_id) WHERE status='in_progress';
CREATE INDEX IF NOT EXISTS ix_attempts_student ON attempts(student_id, started_at);

CREATE TABLE IF NOT EXISTS attempt_answers (
  seq BIGSERIAL PRIMARY KEY,
  attempt_id TEXT NOT NULL REFERENCES attempts(id) ON DELETE CASCADE,
  question_id TEXT NOT NULL,
  selected_option INTEGER NOT NULL DEFAULT 0,
  text_answer TEXT NOT NULL DEFAULT '',
  is_correct INTEGER,
  points_awarded INTEGER,
  feedback TEXT NOT NULL DEFAULT '',
  graded_at BIGINT NOT NULL DEFAULT 0,
  UNIQUE (attempt_id, question_id)
);

CREATE TABLE IF NOT EXISTS remedial_assignments (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  activity_id TEXT NOT NULL REFERENCES activities(id),
  course_id TEXT NOT NULL DEFAULT '',
  topic TEXT NOT NULL DEFAULT '',
  assigned_at BIGINT NOT NULL,
  completed_at BIGINT NOT NULL DEFAULT 0,
  UNIQUE (student_id, activity_id)
);
CREATE INDEX IF NOT EXISTS ix_remedial_open ON remedial_assignments(student_id, course_id, topic, completed_at);

CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'student'
);

CREATE TABLE IF NOT EXISTS event_log (
  "offset" BIGSERIAL PRIMARY KEY,
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
