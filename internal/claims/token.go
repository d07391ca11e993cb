package claims

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claim URIs used by the WS-Federation style tokens the identity service issues.
const (
	ClaimNameURI           = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name"
	ClaimNameIdentifierURI = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier"
	ClaimRoleURI           = "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"
)

type TokenClaims struct {
	jwt.RegisteredClaims

	Name       string `json:"name,omitempty"`
	UniqueName string `json:"unique_name,omitempty"`
	Role       string `json:"role,omitempty"`

	LongName           string `json:"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name,omitempty"`
	LongNameIdentifier string `json:"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier,omitempty"`
	LongRole           string `json:"http://schemas.microsoft.com/ws/2008/06/identity/claims/role,omitempty"`
}

// Verifier checks HS256 tokens minted by the identity service.
type Verifier struct {
	Secret   string
	Issuer   string
	Audience string
}

// Verify validates tokenString at now and returns the Principal it carries.
func (v Verifier) Verify(tokenString string, now time.Time) (Principal, error) {
	if tokenString == "" {
		return Principal{}, fmt.Errorf("missing token")
	}
	if v.Secret == "" {
		return Principal{}, fmt.Errorf("missing signing secret")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.Audience))
	}

	tc := &TokenClaims{}
	tok, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, tc, func(t *jwt.Token) (any, error) {
		return []byte(v.Secret), nil
	})
	if err != nil {
		return Principal{}, err
	}
	if !tok.Valid {
		return Principal{}, fmt.Errorf("invalid token")
	}

	p := tc.Principal()
	if p.UserID == "" {
		return Principal{}, fmt.Errorf("missing subject in token")
	}
	if p.Role == "" {
		return Principal{}, fmt.Errorf("unrecognized role %q", p.Label)
	}
	return p, nil
}

// Principal derives the identity from whichever claim spelling is present.
func (c *TokenClaims) Principal() Principal {
	userID := firstNonEmpty(c.Subject, c.LongNameIdentifier)
	label := firstNonEmpty(c.Role, c.LongRole)
	return Principal{
		UserID:      strings.TrimSpace(userID),
		DisplayName: strings.TrimSpace(firstNonEmpty(c.Name, c.LongName, c.UniqueName)),
		Role:        RoleFromLabel(label),
		Label:       label,
	}
}

// Mint signs an HS256 token for p. Used by dev tooling and tests; production
// tokens come from the identity service.
func Mint(secret string, p Principal, issuer string, ttl time.Duration, now time.Time) (string, error) {
	label := p.Label
	if label == "" {
		label = string(p.Role)
	}
	tc := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name: p.DisplayName,
		Role: label,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString([]byte(secret))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
