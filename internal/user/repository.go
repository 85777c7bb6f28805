package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates no user exists for the given directory id.
var ErrNotFound = errors.New("user not found")

// Repository persists directory-user to wallet bindings.
type Repository interface {
	// LinkWallet records a verified wallet for the directory user, creating
	// the user on first verification and overwriting the address on
	// re-verification.
	LinkWallet(ctx context.Context, directoryID, walletAddress string) (User, error)
	FindByDirectoryID(ctx context.Context, directoryID string) (User, error)
	// ListLinked returns every user with a wallet on file, the population a
	// scheduled sweep iterates over.
	ListLinked(ctx context.Context) ([]User, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed user repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// LinkWallet upserts the user row and stamps the link time.
func (r *PostgresRepository) LinkWallet(ctx context.Context, directoryID, walletAddress string) (User, error) {
	now := time.Now().UTC()
	address := strings.ToLower(walletAddress)

	row := r.db.QueryRow(ctx, `INSERT INTO users (directory_id, wallet_address, linked_at, created_at)
        VALUES ($1, $2, $3, $3)
        ON CONFLICT (directory_id)
        DO UPDATE SET wallet_address = EXCLUDED.wallet_address, linked_at = EXCLUDED.linked_at
        RETURNING directory_id, wallet_address, linked_at, created_at`,
		directoryID, address, now)

	return scanUser(row)
}

// FindByDirectoryID fetches a user by their directory identifier.
func (r *PostgresRepository) FindByDirectoryID(ctx context.Context, directoryID string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT directory_id, wallet_address, linked_at, created_at
        FROM users WHERE directory_id = $1`, directoryID)

	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

// ListLinked fetches all users with a non-empty wallet address.
func (r *PostgresRepository) ListLinked(ctx context.Context) ([]User, error) {
	rows, err := r.db.Query(ctx, `SELECT directory_id, wallet_address, linked_at, created_at
        FROM users WHERE wallet_address <> '' ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u        User
		linkedAt *time.Time
	)
	if err := row.Scan(&u.DirectoryID, &u.WalletAddress, &linkedAt, &u.CreatedAt); err != nil {
		return User{}, err
	}
	if linkedAt != nil {
		u.LinkedAt = linkedAt.UTC()
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}
