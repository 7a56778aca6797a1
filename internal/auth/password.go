package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost はパスワードハッシュの固定コストです。
const BcryptCost = 10

// ErrPasswordTooLong は bcrypt の上限（72バイト）を超えるパスワードで返されます。
var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// Hasher は bcrypt によるパスワードのハッシュ化と照合を行います。
// 平文パスワードはログにもエラーメッセージにも含めません。
type Hasher struct {
	cost  int
	dummy []byte
}

// NewHasher は固定コストの Hasher を作成します。
// VerifyDummy 用のハッシュもここで用意します。
func NewHasher() *Hasher {
	h := &Hasher{cost: BcryptCost}
	if digest, err := bcrypt.GenerateFromPassword([]byte("gatekeeper-timing-equalizer"), h.cost); err == nil {
		h.dummy = digest
	}
	return h
}

// Hash はパスワードのソルト付きハッシュを返します。
func (h *Hasher) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify はパスワードがハッシュと一致するかを定数時間で照合します。
// 壊れたハッシュも不一致として扱います。
func (h *Hasher) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

// VerifyDummy は存在しないユーザーへのログインでも同等の計算コストを払うための照合です。
// 結果は常に破棄されます。
func (h *Hasher) VerifyDummy(password string) {
	if h.dummy == nil {
		return
	}
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
}
