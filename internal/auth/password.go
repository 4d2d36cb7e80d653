package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// legacyHashLen は旧形式（ソルトなしSHA-256の16進文字列）のハッシュ長。
const legacyHashLen = sha256.Size * 2

// PasswordHasher はパスワードの一方向ハッシュ化と照合を行う。
// 新規のハッシュはbcryptで生成し、旧形式のSHA-256ハッシュも照合できる。
// bcryptの入力はパスワードのSHA-256ダイジェスト（base64で44バイト）とし、
// 72バイトの入力上限によってパスワードの長さが制限されたり切り詰められたりしないようにする。
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher は指定コストのPasswordHasherを生成する。
// costが範囲外の場合はbcrypt.DefaultCostを使用する。
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash はパスワードのbcryptハッシュを返す。
func (h *PasswordHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword(prehash(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("パスワードのハッシュ化に失敗: %w", err)
	}
	return string(b), nil
}

// Verify はパスワードが保存済みハッシュと一致するかを返す。
func (h *PasswordHasher) Verify(stored, password string) bool {
	if isLegacyHash(stored) {
		sum := sha256.Sum256([]byte(password))
		return subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(strings.ToLower(stored))) == 1
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), prehash(password)) == nil
}

// prehash はbcryptに渡す固定長の入力を返す。
func prehash(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}

// NeedsRehash は保存済みハッシュが旧形式かどうかを返す。
func (h *PasswordHasher) NeedsRehash(stored string) bool {
	return isLegacyHash(stored)
}

func isLegacyHash(s string) bool {
	if len(s) != legacyHashLen {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
