package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lestrrat-go/jwx/jwt"
	"github.com/patrickmn/go-cache"
)

// ClaimUserID is read when the subject is not a numeric user id
const ClaimUserID = "userId"

// ErrMissingUserID is returned for tokens that carry no positive integer user id
var ErrMissingUserID = errors.New("token carries no user id")

// UserID extracts the integer user id from the subject or the userId claim
func UserID(token jwt.Token) (int64, error) {
	if id, err := parseUserID(token.Subject()); err == nil {
		return id, nil
	}
	raw, ok := token.Get(ClaimUserID)
	if !ok {
		return 0, ErrMissingUserID
	}
	switch v := raw.(type) {
	case float64:
		if v > 0 && v == float64(int64(v)) {
			return int64(v), nil
		}
	case string:
		if id, err := parseUserID(v); err == nil {
			return id, nil
		}
	}
	return 0, ErrMissingUserID
}

func parseUserID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("user id %d is not positive", id)
	}
	return id, nil
}

// UserResolver turns bearer tokens into user ids and remembers the result
// until the token expires or the TTL passes, whichever is first.
type UserResolver struct {
	validator TokenValidator
	cache     *cache.Cache
	ttl       time.Duration
	now       func() time.Time
}

// NewUserResolver creates a resolver caching validated tokens for ttl
func NewUserResolver(validator TokenValidator, ttl time.Duration) *UserResolver {
	return &UserResolver{
		validator: validator,
		cache:     cache.New(ttl, 2*ttl),
		ttl:       ttl,
		now:       time.Now,
	}
}

// Resolve validates token and returns its user id
func (r *UserResolver) Resolve(token string) (int64, error) {
	if cached, ok := r.cache.Get(token); ok {
		return cached.(int64), nil
	}

	parsed, err := r.validator.ValidateJWT(token)
	if err != nil {
		return 0, err
	}
	userID, err := UserID(parsed)
	if err != nil {
		return 0, err
	}

	ttl := r.ttl
	if exp := parsed.Expiration(); !exp.IsZero() {
		if left := exp.Sub(r.now()); left < ttl {
			ttl = left
		}
	}
	if ttl > 0 {
		r.cache.Set(token, userID, ttl)
	}
	return userID, nil
}
