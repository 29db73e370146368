package database

import (
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
)

func (db *PgChatRepository) CreateAccount(params CreateAccountParams) (Account, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, email, password_hash, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $4) RETURNING id, username, email, created_at",
		params.Username,
		params.EmailAddress,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var a Account
	err := res.Scan(
		&a.Id,
		&a.Username,
		&a.EmailAddress,
		&a.CreatedAt,
	)

	return a, err
}

func (db *PgChatRepository) GetAccountById(accountId int) (Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email FROM accounts WHERE id = $1 LIMIT 1",
		accountId,
	)

	var a Account
	err := row.Scan(
		&a.Id,
		&a.Username,
		&a.EmailAddress,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}

	return a, err
}

func (db *PgChatRepository) GetAccountByEmail(email string) (Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash FROM accounts WHERE email = $1 LIMIT 1",
		email,
	)

	var a Account
	err := row.Scan(
		&a.Id,
		&a.Username,
		&a.EmailAddress,
		&a.PasswordHash,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}

	return a, err
}

func (db *PgChatRepository) SearchAccounts(query string, limit int) ([]Account, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.conn.Query(
		"SELECT id, username, email FROM accounts "+
			"WHERE username ILIKE $1 || '%' ORDER BY username LIMIT $2",
		query,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts = make([]Account, 0, limit)
	for rows.Next() {
		var a Account
		if err = rows.Scan(&a.Id, &a.Username, &a.EmailAddress); err != nil {
			break
		}

		accounts = append(accounts, a)
	}

	return accounts, err
}

// CreateRoom inserts a room relying on the primary key on name for
// uniqueness, so a racing duplicate create fails atomically with
// ErrDuplicateRoom rather than through a check-then-insert window.
func (db *PgChatRepository) CreateRoom(name string) (Room, error) {
	if err := ValidateRoomName(name); err != nil {
		return Room{}, err
	}

	res := db.conn.QueryRow(
		"INSERT INTO rooms (name, created_at) VALUES ($1, $2) RETURNING name, created_at",
		name,
		time.Now().UTC(),
	)

	var room Room
	err := res.Scan(
		&room.Name,
		&room.CreatedAt,
	)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return Room{}, ErrDuplicateRoom
	}

	return room, err
}

func (db *PgChatRepository) GetRoom(name string) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT name, created_at FROM rooms WHERE name = $1 LIMIT 1",
		name,
	)

	var room Room
	err := row.Scan(
		&room.Name,
		&room.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Room{}, ErrNotFound
	}

	return room, err
}

func (db *PgChatRepository) ListRooms() ([]Room, error) {
	rows, err := db.conn.Query(
		"SELECT name, created_at FROM rooms ORDER BY created_at DESC, name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms = make([]Room, 0)
	for rows.Next() {
		var room Room
		if err = rows.Scan(&room.Name, &room.CreatedAt); err != nil {
			break
		}

		rooms = append(rooms, room)
	}

	return rooms, err
}

func (db *PgChatRepository) CreateMessage(conversationId, sender, body string) (Message, error) {
	res := db.conn.QueryRow(
		"INSERT INTO messages (conversation_id, sender, body, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, conversation_id, sender, body, created_at",
		conversationId,
		sender,
		body,
		time.Now().UTC(),
	)

	var msg Message
	err := res.Scan(
		&msg.Id,
		&msg.ConversationId,
		&msg.Sender,
		&msg.Body,
		&msg.CreatedAt,
	)

	return msg, err
}

// ListMessages returns a conversation's full history in created_at
// order, insertion order breaking ties. An unknown conversation yields
// an empty slice, not an error.
func (db *PgChatRepository) ListMessages(conversationId string) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT id, conversation_id, sender, body, created_at FROM messages "+
			"WHERE conversation_id = $1 ORDER BY created_at, id",
		conversationId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]Message, 0)
	for rows.Next() {
		var msg Message
		if err = rows.Scan(&msg.Id, &msg.ConversationId, &msg.Sender, &msg.Body, &msg.CreatedAt); err != nil {
			break
		}

		messages = append(messages, msg)
	}

	return messages, err
}
