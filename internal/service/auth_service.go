package service

import (
	"context"

	"bankledger/internal/auth"
)

// LoginResult is returned to a successfully authenticated caller.
type LoginResult struct {
	Email         string
	Name          string
	AccountNumber string
	Token         string
}

// AuthService performs login: the email-keyed credential gate plus session
// token issuance.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
}

type authService struct {
	gate   *CredentialGate
	tokens *auth.TokenIssuer
}

func NewAuthService(gate *CredentialGate, tokens *auth.TokenIssuer) AuthService {
	return &authService{gate: gate, tokens: tokens}
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	result, account, err := s.gate.Authorize(ctx, email, password)
	if err != nil {
		return nil, err
	}
	switch result {
	case Locked:
		return nil, ErrLocked
	case Rejected:
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(account.Email, account.AccountNumber)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Email:         account.Email,
		Name:          account.FullName,
		AccountNumber: account.AccountNumber,
		Token:         token,
	}, nil
}
