package config

import "encoding/json"

// AccountConfig holds the Graph API identity of one managed Instagram
// account: the IG business user id and the page access token that is
// authorized to publish on it.
type AccountConfig struct {
	IGUserID        string `json:"ig_user_id"`
	PageAccessToken string `json:"page_access_token"`
}

type AccountMap map[string]AccountConfig

// ParseAccountMap decodes the IG_ACCOUNT_MAP_JSON env value, e.g.
// {"aurora":{"ig_user_id":"1784...","page_access_token":"EAAG..."}}.
// A missing or malformed value yields an empty map; every account lookup
// then fails, which is the fail-closed behavior we want.
func ParseAccountMap(raw string) AccountMap {
	if raw == "" {
		return AccountMap{}
	}
	var m AccountMap
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return AccountMap{}
	}
	return m
}

// Lookup returns the account config and whether it is complete enough to
// publish with.
func (m AccountMap) Lookup(account string) (AccountConfig, bool) {
	acc, ok := m[account]
	if !ok || acc.IGUserID == "" || acc.PageAccessToken == "" {
		return AccountConfig{}, false
	}
	return acc, true
}
