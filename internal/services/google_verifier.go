package services

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/api/idtoken"
)

type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
}

type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (*GoogleIdentity, error)
}

type googleVerifier struct {
	clientID string
	validate func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
}

// NewGoogleVerifier checks Google ID tokens against clientID. It returns nil
// when clientID is empty.
func NewGoogleVerifier(clientID string) GoogleVerifier {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil
	}
	return &googleVerifier{clientID: clientID, validate: idtoken.Validate}
}

func (g *googleVerifier) Verify(ctx context.Context, idToken string) (*GoogleIdentity, error) {
	payload, err := g.validate(ctx, idToken, g.clientID)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, errors.New("empty token payload")
	}
	return identityFromClaims(payload.Subject, payload.Claims), nil
}

func identityFromClaims(subject string, claims map[string]interface{}) *GoogleIdentity {
	str := func(k string) string {
		s, _ := claims[k].(string)
		return strings.TrimSpace(s)
	}
	verified := false
	switch v := claims["email_verified"].(type) {
	case bool:
		verified = v
	case string:
		verified = v == "true"
	}
	return &GoogleIdentity{
		Subject:       subject,
		Email:         str("email"),
		EmailVerified: verified,
		FirstName:     str("given_name"),
		LastName:      str("family_name"),
	}
}
