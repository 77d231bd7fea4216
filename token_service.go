package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenServiceImpl implements the TokenService interface over a
// SigningKeyring. Encode and decode are pure functions over an immutable
// snapshot of the secret pair, safe under unlimited parallel callers.
type TokenServiceImpl struct {
	keyring          *SigningKeyring
	sessionTTL       time.Duration
	impersonationTTL time.Duration
	issuer           string
	audience         jwt.ClaimStrings
	logger           Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(keyring *SigningKeyring, opts Config, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		keyring:          keyring,
		sessionTTL:       time.Duration(opts.GetTokenExpiration()) * time.Hour,
		impersonationTTL: time.Duration(opts.GetImpersonationTimeout()) * time.Hour,
		issuer:           opts.GetIssuer(),
		audience:         opts.GetAudience(),
		logger:           logger,
	}
}

// IssueSession creates a normal-kind token for an authenticated principal.
// Normal tokens never carry impersonation fields.
func (ts *TokenServiceImpl) IssueSession(identity Identity) (string, error) {
	if identity == nil {
		return "", errors.New("identity must not be nil", errors.CategoryBadInput)
	}

	claims := ts.newClaims(identity.ID(), identity.Role(), TokenKindNormal, ts.sessionTTL)
	return ts.SignClaims(claims)
}

// IssueImpersonation creates an impersonation-kind token whose subject is
// the target. The shorter TTL is a deliberate containment control.
func (ts *TokenServiceImpl) IssueImpersonation(target Identity, impersonatorID string) (string, error) {
	if target == nil {
		return "", errors.New("target identity must not be nil", errors.CategoryBadInput)
	}
	if impersonatorID == "" {
		return "", errors.New("impersonator id must not be empty", errors.CategoryBadInput)
	}

	claims := ts.newClaims(target.ID(), target.Role(), TokenKindImpersonation, ts.impersonationTTL)
	claims.ImpersonatorID = impersonatorID

	return ts.SignClaims(claims)
}

// SignClaims signs session claims using the current signing secret.
func (ts *TokenServiceImpl) SignClaims(claims *SessionClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	if claims.RegisteredClaims.Subject == "" {
		return "", errors.New("claims must carry a subject", errors.CategoryValidation).
			WithTextCode("INVALID_CLAIMS")
	}

	ensureTokenID(&claims.RegisteredClaims)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.keyring.snapshot().current)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning structured
// claims. Verification tries the current secret first and falls back to the
// previous secret while a rotation grace window is open. Expiry is only
// reported once a signature has matched.
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	pair := ts.keyring.snapshot()

	claims, err := ts.parseWithKey(tokenString, pair.current)
	if err != nil && pair.previous != nil && errors.Is(err, ErrInvalidSignature) {
		claims, err = ts.parseWithKey(tokenString, pair.previous)
	}

	if err != nil {
		return nil, err
	}

	return claims, nil
}

func (ts *TokenServiceImpl) parseWithKey(tokenString string, key []byte) (*SessionClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, parserOptions...)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
				WithTextCode(ErrTokenMalformed.TextCode)
		}
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrTokenMalformed
}

func (ts *TokenServiceImpl) newClaims(subject, role string, kind TokenKind, ttl time.Duration) *SessionClaims {
	now := time.Now()

	var aud jwt.ClaimStrings
	if len(ts.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(ts.audience))
		copy(aud, ts.audience)
	}

	return &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   subject,
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID:         subject,
		UserRole:    role,
		SessionKind: kind,
	}
}
