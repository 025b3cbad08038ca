package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/medassist/orchestrator/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			conversation_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			start_time DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_message_time DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (conversation_id) REFERENCES conversations(conversation_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS symptoms (
			symptom_id TEXT PRIMARY KEY,
			name_en TEXT NOT NULL,
			name_vn TEXT,
			des_en TEXT,
			des_vn TEXT,
			synonym TEXT,
			frequency TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS diseases (
			disease_id TEXT PRIMARY KEY,
			name_en TEXT NOT NULL,
			name_vn TEXT,
			des_en TEXT,
			des_vn TEXT,
			severity TEXT,
			specialization TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS disease_symptom (
			disease_id TEXT NOT NULL,
			symptom_id TEXT NOT NULL,
			weight INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (disease_id, symptom_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_disease_symptom_symptom ON disease_symptom(symptom_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// CreateConversation inserts a new conversation record.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (conversation_id, title, start_time, last_message_time) VALUES (?, ?, ?, ?)`,
		conv.ConversationID, conv.Title, conv.StartTime, conv.LastMessageTime,
	)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

// GetConversation returns the conversation or nil when absent.
func (s *SQLiteStore) GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT conversation_id, title, start_time, last_message_time FROM conversations WHERE conversation_id = ?`,
		conversationID,
	)
	var conv domain.Conversation
	err := row.Scan(&conv.ConversationID, &conv.Title, &conv.StartTime, &conv.LastMessageTime)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conv, nil
}

// TouchConversation bumps the conversation's last message time.
func (s *SQLiteStore) TouchConversation(ctx context.Context, conversationID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET last_message_time = ? WHERE conversation_id = ?`,
		time.Now(), conversationID,
	)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}

// AppendMessage appends a message to the conversation's log.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *domain.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (message_id, conversation_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.MessageID, msg.ConversationID, msg.Role, msg.Content, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// GetMessages returns messages for a conversation ordered by creation time.
func (s *SQLiteStore) GetMessages(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, conversation_id, role, content, created_at
		 FROM messages WHERE conversation_id = ? ORDER BY created_at ASC LIMIT ?`,
		conversationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.MessageID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// FindSymptomsByNameOrSynonym matches either locale name exactly
// (case-insensitive) or the synonym field as a case-insensitive substring.
func (s *SQLiteStore) FindSymptomsByNameOrSynonym(ctx context.Context, name string) ([]domain.Symptom, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symptom_id, name_en, COALESCE(name_vn, ''), COALESCE(des_en, ''), COALESCE(des_vn, ''), COALESCE(synonym, ''), COALESCE(frequency, '')
		 FROM symptoms
		 WHERE LOWER(name_en) = LOWER(?) OR LOWER(name_vn) = LOWER(?) OR LOWER(synonym) LIKE '%' || LOWER(?) || '%'`,
		name, name, name,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query symptoms: %w", err)
	}
	defer rows.Close()

	var symptoms []domain.Symptom
	for rows.Next() {
		var sym domain.Symptom
		if err := rows.Scan(&sym.SymptomID, &sym.NameEN, &sym.NameVN, &sym.DescriptionEN, &sym.DescriptionVN, &sym.Synonym, &sym.Frequency); err != nil {
			return nil, fmt.Errorf("failed to scan symptom: %w", err)
		}
		symptoms = append(symptoms, sym)
	}
	return symptoms, rows.Err()
}

// FindDiseaseIDsWithAllSymptoms returns ids of diseases associated with every
// one of the given symptom ids.
func (s *SQLiteStore) FindDiseaseIDsWithAllSymptoms(ctx context.Context, symptomIDs []string) ([]string, error) {
	if len(symptomIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(
		`SELECT disease_id FROM disease_symptom
		 WHERE symptom_id IN (%s)
		 GROUP BY disease_id
		 HAVING COUNT(DISTINCT symptom_id) = ?
		 ORDER BY disease_id ASC`,
		placeholders(len(symptomIDs)),
	)
	args := make([]interface{}, 0, len(symptomIDs)+1)
	for _, id := range symptomIDs {
		args = append(args, id)
	}
	args = append(args, len(symptomIDs))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query strict matches: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan disease id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FindDiseaseMatchesBySymptoms returns diseases overlapping any of the given
// symptom ids, ordered by match count descending then disease id ascending.
func (s *SQLiteStore) FindDiseaseMatchesBySymptoms(ctx context.Context, symptomIDs []string) ([]MatchRow, error) {
	if len(symptomIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(
		`SELECT disease_id, COUNT(DISTINCT symptom_id) AS matches FROM disease_symptom
		 WHERE symptom_id IN (%s)
		 GROUP BY disease_id
		 ORDER BY matches DESC, disease_id ASC`,
		placeholders(len(symptomIDs)),
	)
	args := make([]interface{}, 0, len(symptomIDs))
	for _, id := range symptomIDs {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranked matches: %w", err)
	}
	defer rows.Close()

	var matches []MatchRow
	for rows.Next() {
		var m MatchRow
		if err := rows.Scan(&m.DiseaseID, &m.Matches); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// GetDisease returns the disease or nil when absent.
func (s *SQLiteStore) GetDisease(ctx context.Context, diseaseID string) (*domain.Disease, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT disease_id, name_en, COALESCE(name_vn, ''), COALESCE(des_en, ''), COALESCE(des_vn, ''), COALESCE(severity, ''), COALESCE(specialization, '')
		 FROM diseases WHERE disease_id = ?`,
		diseaseID,
	)
	var d domain.Disease
	err := row.Scan(&d.DiseaseID, &d.NameEN, &d.NameVN, &d.DescriptionEN, &d.DescriptionVN, &d.Severity, &d.Specialization)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get disease: %w", err)
	}
	return &d, nil
}

// UpsertSymptom inserts or replaces a symptom.
func (s *SQLiteStore) UpsertSymptom(ctx context.Context, sym *domain.Symptom) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO symptoms (symptom_id, name_en, name_vn, des_en, des_vn, synonym, frequency)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sym.SymptomID, sym.NameEN, sym.NameVN, sym.DescriptionEN, sym.DescriptionVN, sym.Synonym, string(sym.Frequency),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert symptom: %w", err)
	}
	return nil
}

// UpsertDisease inserts or replaces a disease.
func (s *SQLiteStore) UpsertDisease(ctx context.Context, dis *domain.Disease) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO diseases (disease_id, name_en, name_vn, des_en, des_vn, severity, specialization)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		dis.DiseaseID, dis.NameEN, dis.NameVN, dis.DescriptionEN, dis.DescriptionVN, string(dis.Severity), dis.Specialization,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert disease: %w", err)
	}
	return nil
}

// UpsertDiseaseSymptom inserts or replaces an edge. The composite primary key
// keeps (disease_id, symptom_id) unique.
func (s *SQLiteStore) UpsertDiseaseSymptom(ctx context.Context, edge *domain.DiseaseSymptom) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO disease_symptom (disease_id, symptom_id, weight) VALUES (?, ?, ?)`,
		edge.DiseaseID, edge.SymptomID, edge.Weight,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert disease symptom: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
