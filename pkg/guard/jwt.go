package guard

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/getmockd/rxmux/pkg/flow"
)

// ClaimsKey is the extension bag key holding the claims of a verified
// bearer token.
const ClaimsKey = "__claims"

// Bearer returns a predicate that holds when the request carries an
// "Authorization: Bearer <token>" header whose JWT verifies with keyFunc.
// The token's claims are stored under ClaimsKey. A missing or invalid token
// fails the predicate; it is not an error.
func Bearer(keyFunc jwt.Keyfunc, opts ...jwt.ParserOption) flow.Predicate {
	parser := jwt.NewParser(opts...)
	return func(p *flow.Packet) (bool, error) {
		raw, ok := bearerToken(p.Req.Header.Get("Authorization"))
		if !ok {
			return false, nil
		}
		claims := jwt.MapClaims{}
		token, err := parser.ParseWithClaims(raw, claims, keyFunc)
		if err != nil || !token.Valid {
			p.Logger().Debug("bearer token rejected", "path", p.Req.URL.Path, "error", err)
			return false, nil
		}
		p.Ext().Set(ClaimsKey, claims)
		return true, nil
	}
}

// HMACBearer is Bearer for tokens signed with an HMAC secret.
func HMACBearer(secret []byte) flow.Predicate {
	return Bearer(func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
}

// Claims returns the claims stored by a Bearer predicate, or nil.
func Claims(p *flow.Packet) jwt.MapClaims {
	c, _ := p.Ext().Value(ClaimsKey).(jwt.MapClaims)
	return c
}

// Sign issues an HS256 token for claims. It is meant for tests and demos.
func Sign(secret []byte, claims jwt.MapClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
