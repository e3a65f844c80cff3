// Package report copies users and tasks into a relational database for
// ad hoc querying.
package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/amonks/tareas/internal/validation"
	"github.com/amonks/tareas/task"
	"github.com/amonks/tareas/user"
)

// Dialect names a supported database driver.
type Dialect string

const (
	SQLite   Dialect = "sqlite3"
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

// ErrUnknownDialect is returned for unsupported drivers.
var ErrUnknownDialect = errors.New("unknown database driver")

// ValidDialects returns all supported dialects.
func ValidDialects() []Dialect {
	return []Dialect{SQLite, Postgres, MySQL}
}

// ParseDialect validates a driver name. "sqlite" and "postgresql" are
// accepted as aliases.
func ParseDialect(value string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "sqlite":
		return SQLite, nil
	case "postgresql", "pq":
		return Postgres, nil
	}
	d := Dialect(strings.ToLower(strings.TrimSpace(value)))
	if err := validation.OneOf(ErrUnknownDialect, d, ValidDialects()); err != nil {
		return "", err
	}
	return d, nil
}

// Snapshot is the data written by Export.
type Snapshot struct {
	Users []user.User
	Tasks []task.Task
}

// Summary counts the rows Export wrote.
type Summary struct {
	Users       int `json:"users"`
	Tasks       int `json:"tasks"`
	Assignments int `json:"assignments"`
	Comments    int `json:"comments"`
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
	name VARCHAR(64) NOT NULL PRIMARY KEY,
	role VARCHAR(16) NOT NULL,
	has_password BOOLEAN NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS tasks (
	name VARCHAR(255) NOT NULL PRIMARY KEY,
	description TEXT NOT NULL,
	status VARCHAR(16) NOT NULL,
	created_at VARCHAR(19) NOT NULL,
	finished_at VARCHAR(19) NULL
)`,
	`CREATE TABLE IF NOT EXISTS assignments (
	task_name VARCHAR(255) NOT NULL,
	user_name VARCHAR(64) NOT NULL,
	position INTEGER NOT NULL,
	PRIMARY KEY (task_name, user_name)
)`,
	`CREATE TABLE IF NOT EXISTS comments (
	task_name VARCHAR(255) NOT NULL,
	position INTEGER NOT NULL,
	author VARCHAR(64) NOT NULL,
	body TEXT NOT NULL,
	created_at VARCHAR(19) NOT NULL,
	PRIMARY KEY (task_name, position)
)`,
}

// tables in delete order.
var tables = []string{"comments", "assignments", "tasks", "users"}

// Export replaces the contents of the report tables with snap inside a
// single transaction, creating the tables if needed.
func Export(ctx context.Context, db *sql.DB, dialect Dialect, snap Snapshot) (Summary, error) {
	if err := validation.OneOf(ErrUnknownDialect, dialect, ValidDialects()); err != nil {
		return Summary{}, err
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return Summary{}, fmt.Errorf("create schema: %w", err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Summary{}, fmt.Errorf("begin export: %w", err)
	}
	summary, err := write(ctx, tx, dialect, snap)
	if err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			err = errors.Join(err, rollbackErr)
		}
		return Summary{}, err
	}
	if err := tx.Commit(); err != nil {
		return Summary{}, fmt.Errorf("commit export: %w", err)
	}
	return summary, nil
}

func write(ctx context.Context, tx *sql.Tx, dialect Dialect, snap Snapshot) (Summary, error) {
	var summary Summary
	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return summary, fmt.Errorf("clear %s: %w", table, err)
		}
	}

	insertUser := dialect.insert("users", "name", "role", "has_password")
	for _, u := range snap.Users {
		if _, err := tx.ExecContext(ctx, insertUser, u.Name, string(u.Role), u.HasPassword()); err != nil {
			return summary, fmt.Errorf("insert user %q: %w", u.Name, err)
		}
		summary.Users++
	}

	insertTask := dialect.insert("tasks", "name", "description", "status", "created_at", "finished_at")
	insertAssignment := dialect.insert("assignments", "task_name", "user_name", "position")
	insertComment := dialect.insert("comments", "task_name", "position", "author", "body", "created_at")
	for _, t := range snap.Tasks {
		var finishedAt sql.NullString
		if t.FinishedAt != nil {
			finishedAt = sql.NullString{String: t.FinishedAt.Format(task.TimestampLayout), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, insertTask, t.Name, t.Description, string(t.Status), t.CreatedAt.Format(task.TimestampLayout), finishedAt); err != nil {
			return summary, fmt.Errorf("insert task %q: %w", t.Name, err)
		}
		summary.Tasks++

		for i, name := range t.AssignedUsers {
			if _, err := tx.ExecContext(ctx, insertAssignment, t.Name, name, i); err != nil {
				return summary, fmt.Errorf("insert assignment %q/%q: %w", t.Name, name, err)
			}
			summary.Assignments++
		}
		for i, c := range t.Comments {
			if _, err := tx.ExecContext(ctx, insertComment, t.Name, i, c.Author, c.Text, c.Timestamp.Format(task.TimestampLayout)); err != nil {
				return summary, fmt.Errorf("insert comment on %q: %w", t.Name, err)
			}
			summary.Comments++
		}
	}
	return summary, nil
}

// insert builds an INSERT statement with the dialect's placeholders.
func (d Dialect) insert(table string, columns ...string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = d.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
}

func (d Dialect) placeholder(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}
