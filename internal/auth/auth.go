package auth

import (
	"crypto/subtle"
	"strings"

	"github.com/lukasbrandt/speisekarten-tracker/internal/common"
)

// Authorizer decides whether a presented credential may use the review and
// publish surface. Uploads only need a valid uploader id; everything past
// staging is admin-gated.
type Authorizer interface {
	AuthorizeAdmin(token string) error
}

// StaticTokenAuthorizer compares against one admin token from configuration.
type StaticTokenAuthorizer struct {
	token string
}

func NewStaticTokenAuthorizer(token string) *StaticTokenAuthorizer {
	return &StaticTokenAuthorizer{token: token}
}

func (a *StaticTokenAuthorizer) AuthorizeAdmin(token string) error {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if a.token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) != 1 {
		return common.NewAppError("UNAUTHORIZED", "admin token required", common.ErrUnauthorized)
	}
	return nil
}
