package auth

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated is the root of every error that maps to HTTP 401.
var ErrUnauthenticated = errors.New("unauthenticated")

var (
	ErrInvalidCredentials  = fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	ErrInvalidRefreshToken = fmt.Errorf("%w: invalid refresh token", ErrUnauthenticated)
	ErrRefreshTokenExpired = fmt.Errorf("%w: refresh token expired", ErrUnauthenticated)
)

var ErrUserNotFound = errors.New("user not found")
