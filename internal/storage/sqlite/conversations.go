package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sandevgo/voicebot/internal/core"
	"github.com/sandevgo/voicebot/pkg/log"
)

// ConversationsRepo is the durable ConversationStore.
type ConversationsRepo struct {
	db    *sql.DB
	limit int
}

var _ core.ConversationStore = (*ConversationsRepo)(nil)

func NewConversationsRepo(db *sql.DB, limit int) *ConversationsRepo {
	if limit < 2 {
		limit = core.DefaultHistoryLimit
	}
	return &ConversationsRepo{db: db, limit: limit}
}

func (r *ConversationsRepo) Ensure(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO conversations (id) VALUES (?)`, id)
	if err != nil {
		return false, fmt.Errorf("failed to insert conversation: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Seed creates the conversation row and its system message in one transaction.
func (r *ConversationsRepo) Seed(ctx context.Context, id string, system core.Message) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversations (id) VALUES (?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = CURRENT_TIMESTAMP`, id)
	if err != nil {
		return false, fmt.Errorf("failed to upsert conversation: %w", err)
	}

	var seeded bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM messages WHERE conversation_id = ?)`, id).Scan(&seeded)
	if err != nil {
		return false, fmt.Errorf("failed to check messages: %w", err)
	}
	if seeded {
		return false, tx.Commit()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, role, content) VALUES (?, ?, ?)`,
		id, system.Role, system.Content)
	if err != nil {
		return false, fmt.Errorf("failed to insert system message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *ConversationsRepo) Append(ctx context.Context, id string, msg core.Message) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// 1. The parent row must exist; mark it active
	res, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("%w: %s", core.ErrConversationNotFound, id)
	}

	// 2. Insert the message
	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, role, content) VALUES (?, ?, ?)`,
		id, msg.Role, msg.Content)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	return tx.Commit()
}

// Trim deletes everything between the first message and the newest limit-1.
func (r *ConversationsRepo) Trim(ctx context.Context, id string) error {
	query := `
		DELETE FROM messages
		WHERE conversation_id = ?
		  AND id > (SELECT MIN(id) FROM messages WHERE conversation_id = ?)
		  AND id < (SELECT MIN(id) FROM (
		        SELECT id FROM messages WHERE conversation_id = ? ORDER BY id DESC LIMIT ?
		      ))`

	res, err := r.db.ExecContext(ctx, query, id, id, id, r.limit-1)
	if err != nil {
		return fmt.Errorf("failed to trim messages: %w", err)
	}

	if n, _ := res.RowsAffected(); n > 0 {
		log.FromCtx(ctx).Debug().Str("conversation", id).Int64("removed", n).Msg("trimmed history")
	}
	return nil
}

func (r *ConversationsRepo) History(ctx context.Context, id string) ([]core.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT role, content FROM messages WHERE conversation_id = ? ORDER BY id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]core.Message, 0, r.limit)
	for rows.Next() {
		var msg core.Message
		if err := rows.Scan(&msg.Role, &msg.Content); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

// DeleteStale removes conversations with no writes since before.
func (r *ConversationsRepo) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE updated_at < ?`, before.UTC().Format(time.DateTime))
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale conversations: %w", err)
	}
	return res.RowsAffected()
}
