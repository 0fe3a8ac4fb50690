package session

import (
	"net/http"
	"time"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

// CookieWriter sets and clears the credential cookies.
type CookieWriter struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func NewCookieWriter(cfg Config) CookieWriter {
	return CookieWriter{Secure: cfg.CookieSecure, AccessTTL: cfg.AccessTTL, RefreshTTL: cfg.RefreshTTL}
}

func (c CookieWriter) Set(w http.ResponseWriter, p *Pair) {
	http.SetCookie(w, c.cookie(AccessCookie, p.AccessToken, c.AccessTTL))
	http.SetCookie(w, c.cookie(RefreshCookie, p.RefreshToken, c.RefreshTTL))
}

func (c CookieWriter) Clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(AccessCookie, "", -1))
	http.SetCookie(w, c.cookie(RefreshCookie, "", -1))
}

func (c CookieWriter) cookie(name, value string, ttl time.Duration) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl < 0 {
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
	} else if ttl > 0 {
		ck.MaxAge = int(ttl.Seconds())
	}
	return ck
}
