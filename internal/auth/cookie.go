package auth

import (
	"errors"
	"net/http"
	"time"
)

// CookieName はセッショントークンを格納する Cookie 名です。
const CookieName = "jwt"

// ErrNoCredential はリクエストにセッション Cookie が無い場合に返されます。
var ErrNoCredential = errors.New("auth: no session cookie")

// CookieManager はセッション Cookie の発行・削除・読み取りを行います。
// 属性は HttpOnly, SameSite=Strict 固定で、Secure は本番モードのみ有効です。
type CookieManager struct {
	secure bool
}

// NewCookieManager は CookieManager を作成します。
func NewCookieManager(secure bool) *CookieManager {
	return &CookieManager{secure: secure}
}

// Set はトークンをセッション Cookie として設定します。
// Max-Age は付けず、実際の有効期限はトークン自身の exp で決まります。
func (m *CookieManager) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, m.cookie(token, time.Time{}))
}

// Clear は同じ属性のまま過去の Expires を指定して Cookie を削除します。
func (m *CookieManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie("", time.Unix(0, 0)))
}

// Read はリクエストからトークンを取り出します。
func (m *CookieManager) Read(r *http.Request) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", ErrNoCredential
	}
	return cookie.Value, nil
}

func (m *CookieManager) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	}
}
