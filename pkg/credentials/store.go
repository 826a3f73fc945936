// Package credentials provides encrypted storage for the secrets
// adapters need to reach external services: connector bearer tokens,
// cloud storage keys, model-hub API keys. Follows the same pattern
// throughout: AES-256-GCM encryption at rest, decryptable only inside
// the gateway process.
package credentials

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// TokenType indicates the credential mechanism.
type TokenType string

const (
	TokenTypeBearer TokenType = "bearer"
	TokenTypeApiKey TokenType = "apikey"
)

// Credential is a secret held on behalf of one adapter for one named
// external service (e.g. "connector:caldav-provider", "cloud:s3",
// "model:hub").
type Credential struct {
	ID           string     `json:"id" db:"id"`
	OperatorID   string     `json:"operator_id" db:"operator_id"`
	Service      string     `json:"service" db:"service"`
	TokenType    TokenType  `json:"token_type" db:"token_type"`
	AccessToken  string     `json:"-" db:"access_token"`  // Encrypted at rest
	RefreshToken string     `json:"-" db:"refresh_token"` // Encrypted at rest
	Scopes       []string   `json:"scopes" db:"-"`
	ScopesJSON   string     `json:"-" db:"scopes"`
	Metadata     string     `json:"metadata,omitempty" db:"metadata"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
}

// CredentialStatus is the public-facing status without sensitive data.
type CredentialStatus struct {
	Service    string     `json:"service"`
	Connected  bool       `json:"connected"`
	Metadata   string     `json:"metadata,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Scopes     []string   `json:"scopes,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// Store manages encrypted credential storage.
type Store struct {
	db          *sql.DB
	encKey      []byte
	mu          sync.RWMutex
	envFallback bool // Allow fallback to env vars
}

// StoreOption configures the credential store.
type StoreOption func(*Store)

// WithEnvFallback enables fallback to environment variables, keyed by
// service name (SERVICE_NAME upper-snake-cased, suffixed _API_KEY).
func WithEnvFallback(enabled bool) StoreOption {
	return func(s *Store) {
		s.envFallback = enabled
	}
}

// Migrate creates the credentials table if it does not already exist.
// Callers open their own *sql.DB (a dedicated file, or one shared with
// another collaborator) and run Migrate once before constructing a
// Store against it.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS credentials (
			id TEXT PRIMARY KEY,
			operator_id TEXT NOT NULL,
			service TEXT NOT NULL,
			token_type TEXT NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT,
			scopes TEXT,
			metadata TEXT,
			expires_at DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_used_at DATETIME,
			UNIQUE (operator_id, service)
		)
	`)
	if err != nil {
		return fmt.Errorf("credentials: migrate: %w", err)
	}
	return nil
}

// NewStore creates a new credential store.
// encryptionKey must be exactly 32 bytes for AES-256.
func NewStore(db *sql.DB, encryptionKey []byte, opts ...StoreOption) (*Store, error) {
	if len(encryptionKey) != 32 {
		return nil, errors.New("encryption key must be 32 bytes for AES-256")
	}

	s := &Store{
		db:          db,
		encKey:      encryptionKey,
		envFallback: true,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// encrypt encrypts plaintext using AES-256-GCM.
func (s *Store) encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	block, err := aes.NewCipher(s.encKey)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts ciphertext using AES-256-GCM.
func (s *Store) decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}

	block, err := aes.NewCipher(s.encKey)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	if len(data) < gcm.NonceSize() {
		return "", errors.New("ciphertext too short")
	}

	nonce, cipherBytes := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, cipherBytes, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}

// SaveCredential stores or updates a credential with encryption.
func (s *Store) SaveCredential(ctx context.Context, cred *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	encAccess, err := s.encrypt(cred.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	encRefresh, err := s.encrypt(cred.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	scopesJSON, _ := json.Marshal(cred.Scopes)

	now := time.Now().UTC()

	query := `
		INSERT INTO credentials (id, operator_id, service, token_type, access_token, refresh_token, scopes, metadata, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (operator_id, service) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			scopes = EXCLUDED.scopes,
			metadata = EXCLUDED.metadata,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		cred.ID,
		cred.OperatorID,
		cred.Service,
		cred.TokenType,
		encAccess,
		encRefresh,
		string(scopesJSON),
		cred.Metadata,
		cred.ExpiresAt,
		now,
	)

	return err
}

// GetCredential retrieves a credential by operator and service name.
func (s *Store) GetCredential(ctx context.Context, operatorID, service string) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cred Credential
	var encAccess, encRefresh sql.NullString
	var scopesJSON sql.NullString
	var metadata sql.NullString
	var expiresAt, lastUsedAt sql.NullTime

	query := `
		SELECT id, operator_id, service, token_type, access_token, refresh_token, scopes, metadata, expires_at, created_at, updated_at, last_used_at
		FROM credentials
		WHERE operator_id = $1 AND service = $2
	`

	err := s.db.QueryRowContext(ctx, query, operatorID, service).Scan(
		&cred.ID,
		&cred.OperatorID,
		&cred.Service,
		&cred.TokenType,
		&encAccess,
		&encRefresh,
		&scopesJSON,
		&metadata,
		&expiresAt,
		&cred.CreatedAt,
		&cred.UpdatedAt,
		&lastUsedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		if s.envFallback {
			return s.getFromEnv(service)
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if encAccess.Valid {
		cred.AccessToken, err = s.decrypt(encAccess.String)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt access token: %w", err)
		}
	}

	if encRefresh.Valid {
		cred.RefreshToken, err = s.decrypt(encRefresh.String)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
		}
	}

	if scopesJSON.Valid {
		_ = json.Unmarshal([]byte(scopesJSON.String), &cred.Scopes)
	}

	if metadata.Valid {
		cred.Metadata = metadata.String
	}

	if expiresAt.Valid {
		cred.ExpiresAt = &expiresAt.Time
	}

	if lastUsedAt.Valid {
		cred.LastUsedAt = &lastUsedAt.Time
	}

	return &cred, nil
}

// GetCredentialsByType returns every stored credential of the given
// token type for an operator, decrypted, satisfying the collaborator
// contract's getByType operation.
func (s *Store) GetCredentialsByType(ctx context.Context, operatorID string, tokenType TokenType) ([]*Credential, error) {
	s.mu.RLock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT service FROM credentials WHERE operator_id = $1 AND token_type = $2
	`, operatorID, tokenType)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []string
	for rows.Next() {
		var svc string
		if err := rows.Scan(&svc); err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*Credential, 0, len(services))
	for _, svc := range services {
		cred, err := s.GetCredential(ctx, operatorID, svc)
		if err != nil {
			return nil, err
		}
		if cred != nil {
			out = append(out, cred)
		}
	}
	return out, nil
}

// getFromEnv returns a credential from an environment variable named
// after the service, as a last resort for CI/automation contexts where
// no encrypted row exists yet.
func (s *Store) getFromEnv(service string) (*Credential, error) {
	envVar := envVarForService(service)
	if envVar == "" {
		return nil, nil
	}

	value := os.Getenv(envVar)
	if value == "" {
		return nil, nil
	}

	return &Credential{
		Service:     service,
		TokenType:   TokenTypeApiKey,
		AccessToken: value,
	}, nil
}

func envVarForService(service string) string {
	if service == "" {
		return ""
	}
	out := make([]byte, 0, len(service)+8)
	for _, r := range service {
		switch {
		case r >= 'a' && r <= 'z':
			out = append(out, byte(r-32))
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, byte(r))
		default:
			out = append(out, '_')
		}
	}
	return string(out) + "_API_KEY"
}

// GetStatus returns the public credential status for every service an
// operator has a row for.
func (s *Store) GetStatus(ctx context.Context, operatorID string) ([]CredentialStatus, error) {
	s.mu.RLock()
	rows, err := s.db.QueryContext(ctx, `SELECT service FROM credentials WHERE operator_id = $1`, operatorID)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []string
	for rows.Next() {
		var svc string
		if err := rows.Scan(&svc); err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	statuses := make([]CredentialStatus, 0, len(services))
	for _, svc := range services {
		cred, err := s.GetCredential(ctx, operatorID, svc)
		if err != nil {
			return nil, err
		}

		status := CredentialStatus{
			Service:   svc,
			Connected: cred != nil && cred.AccessToken != "",
		}
		if cred != nil {
			status.Metadata = cred.Metadata
			status.ExpiresAt = cred.ExpiresAt
			status.Scopes = cred.Scopes
			status.LastUsedAt = cred.LastUsedAt
		}
		statuses = append(statuses, status)
	}

	return statuses, nil
}

// DeleteCredential removes a credential.
func (s *Store) DeleteCredential(ctx context.Context, operatorID, service string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `DELETE FROM credentials WHERE operator_id = $1 AND service = $2`
	_, err := s.db.ExecContext(ctx, query, operatorID, service)
	return err
}

// UpdateLastUsed updates the last_used_at timestamp.
func (s *Store) UpdateLastUsed(ctx context.Context, operatorID, service string) error {
	query := `UPDATE credentials SET last_used_at = $1 WHERE operator_id = $2 AND service = $3`
	_, err := s.db.ExecContext(ctx, query, time.Now().UTC(), operatorID, service)
	return err
}

// NeedsRefresh checks if a credential needs token refresh.
func (c *Credential) NeedsRefresh() bool {
	if c == nil || c.ExpiresAt == nil {
		return false
	}
	return time.Until(*c.ExpiresAt) < 5*time.Minute
}
