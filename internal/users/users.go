package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"order-management-service/internal/apperr"
	"order-management-service/internal/auth"
	"order-management-service/internal/stores/postgres"
)

const uniqueViolation = "23505"

const selectUser = `SELECT id, username, email, password_hash, role, created_at, updated_at FROM users`

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (Conf, error) {
	if db == nil {
		return Conf{}, fmt.Errorf("db is nil")
	}
	return Conf{db: db}, nil
}

// InsertUser registers a user. Username and email must both be unused.
func (c *Conf) InsertUser(ctx context.Context, nu NewUser) (User, error) {
	role, err := auth.ParseRole(nu.Role)
	if err != nil {
		return User{}, apperr.Wrap(apperr.KindValidation, err, "Role must be customer or staff.")
	}
	email := strings.ToLower(strings.TrimSpace(nu.Email))

	var usernameTaken, emailTaken bool
	err = c.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1), EXISTS(SELECT 1 FROM users WHERE email = $2)`,
		nu.Username, email).Scan(&usernameTaken, &emailTaken)
	if err != nil {
		return User{}, fmt.Errorf("failed to check existing user: %w", err)
	}
	if usernameTaken {
		return User{}, apperr.New(apperr.KindConflict, "Username already exists.")
	}
	if emailTaken {
		return User{}, apperr.New(apperr.KindConflict, "Email already exists.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	u := User{
		ID:           uuid.NewString(),
		Username:     nu.Username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	err = c.db.QueryRowContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at`,
		u.ID, u.Username, u.Email, u.PasswordHash, role.String()).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		// lost a race with a concurrent registration
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, apperr.Wrap(apperr.KindConflict, err, "Username or email already exists.")
		}
		return User{}, fmt.Errorf("failed to insert user: %w", err)
	}
	return u, nil
}

// Authenticate returns the user matching email and password. Unknown email
// and wrong password produce the same error.
func (c *Conf) Authenticate(ctx context.Context, email, password string) (User, error) {
	row := c.db.QueryRowContext(ctx, selectUser+" WHERE email = $1", strings.ToLower(strings.TrimSpace(email)))
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, apperr.New(apperr.KindAuthentication, "Invalid credentials.")
		}
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, apperr.Wrap(apperr.KindAuthentication, err, "Invalid credentials.")
	}
	return u, nil
}

func (c *Conf) GetUserByID(ctx context.Context, id string) (User, error) {
	u, err := scanUser(c.db.QueryRowContext(ctx, selectUser+" WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, apperr.New(apperr.KindNotFound, "User not found.")
		}
		return User{}, err
	}
	return u, nil
}

// ByIDs fetches users in one query, keyed by id.
func ByIDs(ctx context.Context, q postgres.DBTX, ids []string) (map[string]User, error) {
	out := make(map[string]User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := q.QueryContext(ctx,
		selectUser+" WHERE id IN ("+postgres.Placeholders(1, len(ids))+") ORDER BY id", postgres.Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users by id: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (User, error) {
	var (
		u    User
		role string
	)
	if err := s.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, err
		}
		return User{}, fmt.Errorf("failed to scan user: %w", err)
	}
	r, err := auth.ParseRole(role)
	if err != nil {
		return User{}, fmt.Errorf("user %s: %w", u.ID, err)
	}
	u.Role = r
	return u, nil
}
