package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/dwaite/trimpool/internal/errs"
	"github.com/dwaite/trimpool/internal/model"
)

type ChatStore struct {
	db *sql.DB
}

func NewChatStore(db *sql.DB) *ChatStore {
	return &ChatStore{db: db}
}

func scanChatMessage(scanner interface{ Scan(...any) error }) (*model.ChatMessage, error) {
	var m model.ChatMessage
	var pinned, hidden int
	var editedAt sql.NullTime

	err := scanner.Scan(
		&m.ID, &m.ChallengeID, &m.UserID, &m.Body,
		&pinned, &hidden, &editedAt, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.Pinned = pinned != 0
	m.Hidden = hidden != 0
	if editedAt.Valid {
		m.EditedAt = &editedAt.Time
	}
	return &m, nil
}

const chatCols = `id, challenge_id, user_id, body, pinned, hidden, edited_at, created_at`

func (s *ChatStore) Create(challengeID, userID int64, body string) (*model.ChatMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, errs.Validation("message body is required")
	}

	result, err := s.db.Exec(
		`INSERT INTO chat_messages (challenge_id, user_id, body) VALUES (?, ?, ?)`,
		challengeID, userID, body,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chat message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChatStore) GetByID(id int64) (*model.ChatMessage, error) {
	row := s.db.QueryRow(`SELECT `+chatCols+` FROM chat_messages WHERE id = ?`, id)
	m, err := scanChatMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chat message: %w", err)
	}
	return m, nil
}

// ListByChallenge returns a challenge's visible feed, pinned messages first,
// then newest first. Hidden (moderated) messages are excluded.
func (s *ChatStore) ListByChallenge(challengeID int64) ([]model.ChatMessage, error) {
	rows, err := s.db.Query(
		`SELECT `+chatCols+` FROM chat_messages
		 WHERE challenge_id = ? AND hidden = 0
		 ORDER BY pinned DESC, created_at DESC, id DESC`,
		challengeID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	var messages []model.ChatMessage
	for rows.Next() {
		m, err := scanChatMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

// UpdateBody edits a message and stamps edited_at.
func (s *ChatStore) UpdateBody(id int64, body string) (*model.ChatMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, errs.Validation("message body is required")
	}

	_, err := s.db.Exec(
		`UPDATE chat_messages SET body = ?, edited_at = datetime('now') WHERE id = ?`,
		body, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update chat message: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChatStore) TogglePinned(id int64) (*model.ChatMessage, error) {
	msg, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, nil
	}

	newPinned := 0
	if !msg.Pinned {
		newPinned = 1
	}

	_, err = s.db.Exec(`UPDATE chat_messages SET pinned = ? WHERE id = ?`, newPinned, id)
	if err != nil {
		return nil, fmt.Errorf("toggle pinned: %w", err)
	}
	return s.GetByID(id)
}

// Hide marks a message removed by moderation. The row is kept so the feed
// history stays auditable.
func (s *ChatStore) Hide(id int64) error {
	_, err := s.db.Exec(`UPDATE chat_messages SET hidden = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("hide chat message: %w", err)
	}
	return nil
}

func (s *ChatStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM chat_messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chat message: %w", err)
	}
	return nil
}
