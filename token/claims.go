package token

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/pkg/errors"
)

const (
	// ClaimRoleStandard is the role claim type understood by most bearer
	// middleware stacks.
	ClaimRoleStandard = "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"
	ClaimRole         = "role"
	ClaimUserID       = "uid"
)

// Claims is the verified content of an access token.
type Claims struct {
	Subject   string     // Encrypted username
	Role      users.Role // Parsed role claim
	UserID    int64      // uid claim
	TokenID   string     // jti
	Issuer    string
	Audience  []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func claimsFromMap(mc jwt.MapClaims) (*Claims, error) {
	sub, err := mc.GetSubject()
	if err != nil || sub == "" {
		return nil, errors.New("token has no subject")
	}

	roleName, _ := mc[ClaimRole].(string)
	if roleName == "" {
		roleName, _ = mc[ClaimRoleStandard].(string)
	}
	role, err := users.ParseRoleName(roleName)
	if err != nil {
		return nil, err
	}

	uid, err := userIDClaim(mc[ClaimUserID])
	if err != nil {
		return nil, err
	}

	c := &Claims{Subject: sub, Role: role, UserID: uid}
	c.TokenID, _ = mc["jti"].(string)
	c.Issuer, _ = mc.GetIssuer()
	c.Audience, _ = mc.GetAudience()
	if iat, _ := mc.GetIssuedAt(); iat != nil {
		c.IssuedAt = iat.Time
	}
	if exp, _ := mc.GetExpirationTime(); exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, nil
}

// userIDClaim accepts the decimal string form written by IssueAccessToken as
// well as a bare JSON number.
func userIDClaim(v any) (int64, error) {
	switch uid := v.(type) {
	case string:
		id, err := strconv.ParseInt(uid, 10, 64)
		if err != nil {
			return 0, errors.Wrap(err, "uid claim")
		}
		return id, nil
	case float64:
		return int64(uid), nil
	default:
		return 0, errors.New("token has no uid claim")
	}
}
