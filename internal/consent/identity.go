package consent

import (
	"net"
	"net/http"
	"time"

	"github.com/chunkytofustudios/analytics-gate/pkg/hashutil"
	"github.com/google/uuid"
)

const cookielessIDLength = 32

/*
ClientID identifies the visitor behind r.

Visitors who granted analytics consent keep a random ID in a first-party
cookie, issued on first sight. Everyone else gets a cookieless ID derived
from user agent, remote network and day, so nothing is stored on their
device and the ID rotates daily.
*/
func ClientID(w http.ResponseWriter, r *http.Request, choices Choices, now time.Time, secure bool) string {
	if !choices.Analytics {
		return cookielessID(r, now)
	}

	if cookie, err := r.Cookie(ClientIDCookieName); err == nil {
		if _, parseErr := uuid.Parse(cookie.Value); parseErr == nil {
			return cookie.Value
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     ClientIDCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(clientIDAge / time.Second),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// Forget expires the client ID cookie.
func Forget(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   ClientIDCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

func cookielessID(r *http.Request, now time.Time) string {
	sum, err := hashutil.HashParts(
		hashutil.HashAlgoBLAKE3,
		r.UserAgent(),
		remoteNetwork(r.RemoteAddr),
		now.UTC().Format(time.DateOnly),
	)
	if err != nil || len(sum) < cookielessIDLength {
		return sum
	}
	return sum[:cookielessIDLength]
}

// remoteNetwork masks the remote address to its /24 (IPv4) or /48 (IPv6).
func remoteNetwork(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return ""
	}
	if v4 := ip.To4(); v4 != nil {
		return v4.Mask(net.CIDRMask(24, 32)).String()
	}
	return ip.Mask(net.CIDRMask(48, 128)).String()
}
