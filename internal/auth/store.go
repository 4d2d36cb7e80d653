package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/learnhub/pkg/database"
	"github.com/nao1215/learnhub/pkg/token"
)

var (
	// ErrUserNotFound はユーザーが存在しないことを表す。
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken はメールアドレスが登録済みであることを表す。
	ErrEmailTaken = errors.New("email already registered")
)

// User は認証情報を含むユーザーレコード。
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         token.Role
	Active       bool
	CreatedAt    time.Time
}

// Store はusersテーブルへのアクセスを提供する。
type Store struct {
	db *sql.DB
}

// NewStore は新しいStoreを生成する。
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create はユーザーを保存する。メールアドレスが重複する場合はErrEmailTakenを返す。
func (s *Store) Create(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), u.Active, u.CreatedAt,
	)
	if database.IsUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("ユーザーの保存に失敗: %w", err)
	}
	return nil
}

// FindByEmail はメールアドレスでユーザーを検索する。
func (s *Store) FindByEmail(ctx context.Context, email string) (User, error) {
	return s.findOne(ctx, `SELECT id, name, email, password_hash, role, active, created_at
		FROM users WHERE email = $1`, email)
}

// FindByID はIDでユーザーを検索する。
func (s *Store) FindByID(ctx context.Context, id string) (User, error) {
	return s.findOne(ctx, `SELECT id, name, email, password_hash, role, active, created_at
		FROM users WHERE id = $1`, id)
}

// UpdatePasswordHash はパスワードハッシュを置き換える。
func (s *Store) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, hash, id); err != nil {
		return fmt.Errorf("パスワードハッシュの更新に失敗: %w", err)
	}
	return nil
}

func (s *Store) findOne(ctx context.Context, query string, arg any) (User, error) {
	var (
		u    User
		role string
	)
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.Active, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}
	if u.Role, err = token.ParseRole(role); err != nil {
		return User{}, fmt.Errorf("ユーザー %s のロールが不正: %w", u.ID, err)
	}
	return u, nil
}
