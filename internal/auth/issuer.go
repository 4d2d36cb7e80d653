package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/learnhub/pkg/apperr"
	"github.com/nao1215/learnhub/pkg/event"
	"github.com/nao1215/learnhub/pkg/messaging"
	"github.com/nao1215/learnhub/pkg/middleware"
	"github.com/nao1215/learnhub/pkg/token"
	"github.com/rs/zerolog"
)

// https://html.spec.whatwg.org/#valid-e-mail-address
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

// RegisterInput はユーザー登録の入力。
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Profile は公開してよいユーザー情報。
type Profile struct {
	UserID string     `json:"user_id"`
	Name   string     `json:"name"`
	Email  string     `json:"email"`
	Role   token.Role `json:"role"`
}

// LoginResult はログイン成功時に返すトークンとプロフィール。
type LoginResult struct {
	Token string
	Profile
}

// Introspection はトークン検証の結果。
type Introspection struct {
	Valid  bool       `json:"valid"`
	UserID string     `json:"user_id"`
	Role   token.Role `json:"role"`
}

// Issuer は認証情報を検証してセッショントークンを発行する。
type Issuer struct {
	store  *Store
	codec  *token.Codec
	hasher *PasswordHasher
	events messaging.Publisher
	now    func() time.Time

	// dummyHash は未登録メールアドレスでのログインでも照合コストを揃えるために使う。
	dummyOnce sync.Once
	dummyHash string
}

// NewIssuer は新しいIssuerを生成する。
func NewIssuer(store *Store, codec *token.Codec, hasher *PasswordHasher, events messaging.Publisher) *Issuer {
	return &Issuer{
		store:  store,
		codec:  codec,
		hasher: hasher,
		events: events,
		now:    time.Now,
	}
}

// NormalizeEmail は前後の空白を除去して小文字化する。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register は新しいユーザーをstudentロールで登録し、ユーザーIDを返す。
func (i *Issuer) Register(ctx context.Context, in RegisterInput) (string, error) {
	name := strings.TrimSpace(in.Name)
	email := NormalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return "", apperr.InvalidInput("Missing required fields")
	}
	if !emailRegex.MatchString(email) {
		return "", apperr.InvalidInput("Invalid email format")
	}

	hash, err := i.hasher.Hash(in.Password)
	if err != nil {
		return "", apperr.Internal(err)
	}

	user := User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         token.RoleStudent,
		Active:       true,
		CreatedAt:    i.now().UTC(),
	}
	if err := i.store.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return "", apperr.Conflict("User already exists")
		}
		return "", apperr.Internal(err)
	}

	messaging.Emit(ctx, i.events, user.ID, event.AggregateTypeUser, event.TypeUserRegistered, event.UserRegisteredData{
		Email: user.Email,
		Name:  user.Name,
		Role:  string(user.Role),
	})
	return user.ID, nil
}

// Login は認証情報を照合してトークンを発行する。
// メールアドレスが未登録の場合とパスワード不一致の場合は区別しない。
func (i *Issuer) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{}, apperr.InvalidInput("Missing email or password")
	}

	user, err := i.store.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		i.hasher.Verify(i.dummy(), password)
		return LoginResult{}, apperr.Unauthorized("Invalid credentials")
	}
	if err != nil {
		return LoginResult{}, apperr.Internal(err)
	}
	if !i.hasher.Verify(user.PasswordHash, password) {
		return LoginResult{}, apperr.Unauthorized("Invalid credentials")
	}

	if i.hasher.NeedsRehash(user.PasswordHash) {
		i.upgradeHash(ctx, user.ID, password)
	}

	signed, err := i.codec.Issue(token.Claims{UserID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		return LoginResult{}, apperr.Internal(err)
	}
	return LoginResult{Token: signed, Profile: profileOf(user)}, nil
}

func (i *Issuer) dummy() string {
	i.dummyOnce.Do(func() {
		i.dummyHash, _ = i.hasher.Hash(uuid.NewString())
	})
	return i.dummyHash
}

// upgradeHash は旧形式のハッシュをbcryptに置き換える。失敗してもログインは成功させる。
func (i *Issuer) upgradeHash(ctx context.Context, userID, password string) {
	log := zerolog.Ctx(ctx)
	hash, err := i.hasher.Hash(password)
	if err == nil {
		err = i.store.UpdatePasswordHash(ctx, userID, hash)
	}
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("failed to upgrade legacy password hash")
		return
	}
	log.Info().Str("user_id", userID).Msg("legacy password hash upgraded")
}

// Introspect はトークンを検証して主体を返す。永続状態は参照しない。
func (i *Issuer) Introspect(tok string) (Introspection, error) {
	if strings.TrimSpace(tok) == "" {
		return Introspection{}, apperr.InvalidInput("No token provided")
	}
	claims, err := middleware.Authenticate(i.codec, tok)
	if err != nil {
		return Introspection{}, err
	}
	return Introspection{Valid: true, UserID: claims.UserID, Role: claims.Role}, nil
}

// WhoAmI は主体の現在のプロフィールを返す。ユーザーが削除されていればNotFound。
func (i *Issuer) WhoAmI(ctx context.Context, p token.Principal) (Profile, error) {
	user, err := i.store.FindByID(ctx, p.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return Profile{}, apperr.NotFound("User not found")
	}
	if err != nil {
		return Profile{}, apperr.Internal(err)
	}
	return profileOf(user), nil
}

func profileOf(u User) Profile {
	return Profile{UserID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
