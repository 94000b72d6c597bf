package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes はbcryptが照合に使うパスワードの最大バイト数。
// これを超える部分はbcryptに無視されるため、照合前に拒否する。
const MaxPasswordBytes = 72

// PasswordHasher はパスワードの一方向ハッシュ化と照合を行う。
type PasswordHasher interface {
	// Hash はソルト付きの自己記述的なハッシュ文字列を返す。
	Hash(password string) (string, error)
	// Verify はパスワードがハッシュと一致するかを返す。不正なハッシュに対してはfalseを返す。
	Verify(password, hash string) bool
}

// BcryptHasher はbcryptによるPasswordHasherの実装。
// ハッシュ文字列にアルゴリズム・コスト・ソルトが含まれるため、ソルトを別に保存する必要はない。
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher はBcryptHasherを生成する。
// costが許容範囲外の場合はbcrypt.DefaultCostを使用する。
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash はパスワードをbcryptでハッシュ化する。
// bcryptの仕様上、72バイトを超えるパスワードはエラーとなる。
func (h *BcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify はパスワードとハッシュを定数時間で照合する。
// MaxPasswordBytesを超えるパスワードは先頭72バイトが一致してもfalseを返す。
func (h *BcryptHasher) Verify(password, hash string) bool {
	if hash == "" || len(password) > MaxPasswordBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// compile-time interface check
var _ PasswordHasher = (*BcryptHasher)(nil)
