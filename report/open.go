package report

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Open connects to a database with the named driver.
func Open(driver, dsn string) (*sql.DB, Dialect, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, "", err
	}
	if dsn == "" {
		return nil, "", fmt.Errorf("%s: data source name is required", dialect)
	}
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", dialect, err)
	}
	return db, dialect, nil
}
