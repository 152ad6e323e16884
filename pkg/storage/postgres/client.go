// Package postgres provides the PostgreSQL implementation of the memory store.
//
// Memory context tags are stored in a JSONB column. Suitable for deployments
// that already run PostgreSQL for the surrounding application.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"github.com/Arnaud58/LlamaKeeper/pkg/storage"
)

// Client implements storage.Store using PostgreSQL as the backend.
type Client struct {
	// db is the PostgreSQL database connection.
	db *sql.DB

	// tableName is the name of the table storing memories.
	tableName string
}

// Config contains configuration for creating a PostgreSQL store.
type Config struct {
	// Host is the database server host.
	Host string

	// Port is the database server port.
	Port int

	// User is the database user.
	User string

	// Password is the database password.
	Password string

	// DBName is the database name.
	DBName string

	// TableName is the name of the table to use. Defaults to "memories".
	TableName string

	// SSLMode is the sslmode connection parameter. Defaults to "disable".
	SSLMode string
}

// NewClient creates a new PostgreSQL store client.
//
// Parameters:
//   - cfg: Configuration containing connection parameters and table name
//
// Returns:
//   - *Client: The PostgreSQL client instance
//   - error: Error if database connection or table creation fails
func NewClient(cfg *Config) (*Client, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	tableName := cfg.TableName
	if tableName == "" {
		tableName = "memories"
	}

	client := &Client{
		db:        db,
		tableName: tableName,
	}

	if err := client.initTables(context.Background()); err != nil {
		return nil, err
	}

	return client, nil
}

// initTables initializes the database table structure.
func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY,
			character_id TEXT NOT NULL,
			content TEXT NOT NULL,
			importance DOUBLE PRECISION NOT NULL DEFAULT 0.5,
			context JSONB,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)
	`, c.tableName)

	_, err := c.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	indexQuery := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_character ON %s(character_id)
	`, c.tableName, c.tableName)
	_, err = c.db.ExecContext(ctx, indexQuery)
	if err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	return nil
}

// Insert inserts a memory record into the PostgreSQL database.
func (c *Client) Insert(ctx context.Context, record *storage.Record) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, character_id, content, importance, context, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.tableName)

	contextJSON, err := json.Marshal(record.Context)
	if err != nil {
		return fmt.Errorf("Insert: %w", err)
	}

	_, err = c.db.ExecContext(ctx, query,
		record.ID,
		record.CharacterID,
		record.Content,
		record.Importance,
		string(contextJSON),
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Insert: %w", err)
	}

	return nil
}

// Get retrieves a memory record by id.
func (c *Client) Get(ctx context.Context, id int64) (*storage.Record, error) {
	query := fmt.Sprintf(`
		SELECT id, character_id, content, importance, context, created_at
		FROM %s
		WHERE id = $1
	`, c.tableName)

	row := c.db.QueryRowContext(ctx, query, id)

	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}

	return record, nil
}

// ListByCharacter returns every record owned by the character, unordered.
func (c *Client) ListByCharacter(ctx context.Context, characterID string) ([]*storage.Record, error) {
	query := fmt.Sprintf(`
		SELECT id, character_id, content, importance, context, created_at
		FROM %s
		WHERE character_id = $1
	`, c.tableName)

	rows, err := c.db.QueryContext(ctx, query, characterID)
	if err != nil {
		return nil, fmt.Errorf("ListByCharacter: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []*storage.Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByCharacter: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByCharacter: %w", err)
	}

	return records, nil
}

// UpdateImportance overwrites the importance of an existing record.
func (c *Client) UpdateImportance(ctx context.Context, id int64, importance float64) error {
	query := fmt.Sprintf("UPDATE %s SET importance = $1 WHERE id = $2", c.tableName)

	result, err := c.db.ExecContext(ctx, query, importance, id)
	if err != nil {
		return fmt.Errorf("UpdateImportance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateImportance: %w", err)
	}

	if rowsAffected == 0 {
		return storage.ErrRecordNotFound
	}

	return nil
}

// DeleteMany removes the named records. Missing ids are skipped silently.
func (c *Client) DeleteMany(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)",
		c.tableName, strings.Join(placeholders, ","))

	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("DeleteMany: %w", err)
	}

	return nil
}

// DeleteByCharacter removes every record owned by the character.
func (c *Client) DeleteByCharacter(ctx context.Context, characterID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE character_id = $1", c.tableName)

	if _, err := c.db.ExecContext(ctx, query, characterID); err != nil {
		return fmt.Errorf("DeleteByCharacter: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// rowScanner abstracts sql.Row and sql.Rows for scanRecord.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord scans a memory record from a database row or rows.
func scanRecord(scanner rowScanner) (*storage.Record, error) {
	var record storage.Record
	var contextStr sql.NullString

	err := scanner.Scan(
		&record.ID,
		&record.CharacterID,
		&record.Content,
		&record.Importance,
		&contextStr,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if contextStr.Valid && contextStr.String != "" {
		if err := json.Unmarshal([]byte(contextStr.String), &record.Context); err != nil {
			return nil, fmt.Errorf("parse context: %w", err)
		}
	}
	if record.Context == nil {
		record.Context = map[string]interface{}{}
	}

	return &record, nil
}
