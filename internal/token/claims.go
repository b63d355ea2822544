package token

import (
	"encoding/json"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nkiryanov/authd/internal/models"
)

// Claims is the payload embedded in every signed token. It only ever exists
// server side for the moment of signing or checking, the persisted state is
// the registry row and, after revocation, the blacklist row.
type Claims struct {
	jwt.RegisteredClaims
	UserID  int64        `json:"uid"`
	Version int64        `json:"version"`
	Scope   models.Scope `json:"scope"`
	TokenID int64        `json:"token_id,omitempty"`

	present decodedClaims
}

// hasUserID / hasVersion survive decoding only. The zero values of uid and
// version are meaningful, so "key absent" has to be tracked separately to
// reject crafted payloads that simply drop them.
type decodedClaims struct {
	hasUserID  bool
	hasVersion bool
}

func (c *Claims) UnmarshalJSON(data []byte) error {
	type plain Claims
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}

	*c = Claims(p)
	_, c.present.hasUserID = keys["uid"]
	_, c.present.hasVersion = keys["version"]
	return nil
}

// HasIdentity reports whether both uid and version keys were present in the
// decoded payload
func (c *Claims) HasIdentity() bool {
	return c.present.hasUserID && c.present.hasVersion
}
