package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/yattcodes/ai-gateway/backend/internal/model/chat"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

// PostgresStorage is the durable Storage implementation. The append
// transaction is the per-document atomic upsert the rest of the system
// relies on; there are no cross-table transactions beyond it.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStorage(config DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := &PostgresStorage{db: db, logger: logger}

	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

func (s *PostgresStorage) AppendMessage(ctx context.Context, userID, content, role string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting append transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING`,
		uuid.NewString(), userID)
	if err != nil {
		return fmt.Errorf("error upserting conversation: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, role, content)
		SELECT id, $2, $3 FROM conversations WHERE user_id = $1`,
		userID, role, content)
	if err != nil {
		return fmt.Errorf("error appending message: %w", err)
	}

	return tx.Commit()
}

func (s *PostgresStorage) GetPage(ctx context.Context, userID string, page, limit int) ([]chat.Message, int, error) {
	offset := (page - 1) * limit
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT m.role, m.content, m.created_at
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE c.user_id = $1
		ORDER BY m.id
		OFFSET $2 LIMIT $3`,
		userID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("error querying messages: %w", err)
	}
	defer rows.Close()

	messages := make([]chat.Message, 0, limit)
	for rows.Next() {
		var m chat.Message
		if err := rows.Scan(&m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, 0, fmt.Errorf("error scanning message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating messages: %w", err)
	}

	// Independent count read; may lag the slice under concurrent writes.
	var total int
	err = s.db.QueryRowContext(ctx, `
		SELECT count(*)
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE c.user_id = $1`,
		userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("error counting messages: %w", err)
	}

	return messages, total, nil
}

func (s *PostgresStorage) ListConversations(ctx context.Context, userID string) ([]chat.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, COALESCE(c.title, ''), COALESCE(last.content, '')
		FROM conversations c
		LEFT JOIN LATERAL (
			SELECT content, created_at FROM messages
			WHERE conversation_id = c.id
			ORDER BY id DESC LIMIT 1
		) last ON true
		WHERE c.user_id = $1
		ORDER BY last.created_at DESC NULLS LAST`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("error querying conversations: %w", err)
	}
	defer rows.Close()

	var summaries []chat.Summary
	for rows.Next() {
		var s chat.Summary
		if err := rows.Scan(&s.ID, &s.Title, &s.LastMessage); err != nil {
			return nil, fmt.Errorf("error scanning conversation: %w", err)
		}
		if s.Title == "" {
			s.Title = "Untitled Conversation"
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (s *PostgresStorage) RecordUsage(ctx context.Context, userID string, tokens int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting usage transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO token_usage (user_id, total_tokens)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET total_tokens = token_usage.total_tokens + EXCLUDED.total_tokens`,
		userID, tokens)
	if err != nil {
		return fmt.Errorf("error upserting token usage: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO token_usage_history (user_id, tokens)
		VALUES ($1, $2)`,
		userID, tokens)
	if err != nil {
		return fmt.Errorf("error appending usage history: %w", err)
	}

	return tx.Commit()
}

func (s *PostgresStorage) GetUsage(ctx context.Context, userID string) (*chat.UsageRecord, error) {
	record := &chat.UsageRecord{UserID: userID}

	err := s.db.QueryRowContext(ctx,
		`SELECT total_tokens FROM token_usage WHERE user_id = $1`,
		userID).Scan(&record.TotalTokens)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("error querying token usage: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT created_at, tokens FROM token_usage_history
		WHERE user_id = $1 ORDER BY id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("error querying usage history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry chat.UsageEntry
		if err := rows.Scan(&entry.Timestamp, &entry.Tokens); err != nil {
			return nil, fmt.Errorf("error scanning usage entry: %w", err)
		}
		record.History = append(record.History, entry)
	}
	return record, rows.Err()
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
