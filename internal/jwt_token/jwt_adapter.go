package jwttoken

import (
	authmw "askdata/pkg/platform/middleware/auth"
)

var _ authmw.JWTValidator = Verifier{}

// Verifier exposes a JWTService to the identity middleware, which only
// needs the account subject and the token ID.
type Verifier struct {
	service *JWTService
}

func NewVerifier(service *JWTService) Verifier {
	return Verifier{service: service}
}

func (v Verifier) ValidateToken(raw string) (*authmw.JWTClaims, error) {
	claims, err := v.service.ValidateToken(raw)
	if err != nil {
		return nil, err
	}
	return &authmw.JWTClaims{Subject: claims.Subject, JTI: claims.ID}, nil
}
