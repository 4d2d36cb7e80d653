package token

import "fmt"

// Role はユーザーのロールを表す閉じた列挙。
type Role string

const (
	// RoleStudent は受講者。新規登録時の既定ロール。
	RoleStudent Role = "student"
	// RoleInstructor は講師。コースやモジュールを作成できる。
	RoleInstructor Role = "instructor"
	// RoleAdmin は管理者。
	RoleAdmin Role = "admin"
)

// Valid はロールが列挙値のいずれかであるかを返す。
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole は文字列をRoleに変換する。未知の値はエラー。
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("未知のロール: %q", s)
	}
	return r, nil
}

// Principal はトークン検証によって得られる認証済みの主体。
type Principal struct {
	// UserID はユーザーの一意識別子。
	UserID string
	// Role はユーザーのロール。
	Role Role
}

// HasRole は主体のロールがallowedのいずれかに含まれるかを返す。
func (p Principal) HasRole(allowed ...Role) bool {
	for _, r := range allowed {
		if p.Role == r {
			return true
		}
	}
	return false
}
