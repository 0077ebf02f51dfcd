package consent

import "time"

const (
	// CookieName holds the visitor's consent choices.
	CookieName = "cc_cookie"
	// ClientIDCookieName holds the analytics client ID of consenting visitors.
	ClientIDCookieName = "_ga_cid"

	cookieMaxAge = 182 * 24 * time.Hour
	clientIDAge  = 365 * 24 * time.Hour
)

// Consent Mode storage types.
const (
	StorageAnalytics         = "analytics_storage"
	StorageAds               = "ad_storage"
	StorageAdUserData        = "ad_user_data"
	StorageAdPersonalization = "ad_personalization"

	Granted = "granted"
	Denied  = "denied"
)

// Consent command targets.
const (
	TargetDefault = "default"
	TargetUpdate  = "update"
)

// ParamClientID scopes a consent command to one visitor.
const ParamClientID = "client_id"

const (
	categoryNecessary = "necessary"
	categoryAnalytics = "analytics"
	categoryAds       = "ads"
)

// Choices is what a visitor agreed to. The zero value denies everything.
type Choices struct {
	Analytics bool
	Ads       bool
}

// Params renders the choices as Consent Mode parameters.
func (c Choices) Params() map[string]any {
	return map[string]any{
		StorageAnalytics:         status(c.Analytics),
		StorageAds:               status(c.Ads),
		StorageAdUserData:        status(c.Ads),
		StorageAdPersonalization: status(c.Ads),
	}
}

func status(granted bool) string {
	if granted {
		return Granted
	}
	return Denied
}

// cookieValue is the JSON document stored in cc_cookie.
type cookieValue struct {
	Categories []string `json:"categories"`
	Revision   int      `json:"revision"`
	ConsentID  string   `json:"consentId,omitempty"`
}
