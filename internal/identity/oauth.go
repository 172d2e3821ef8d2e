package identity

import (
	"context"
	"fmt"

	"github.com/workos/workos-go/v6/pkg/usermanagement"

	"github.com/quesbackend/ques-core/internal/apperr"
)

// OAuthBinder exchanges an authorization code from an OAuth-like provider
// (google in the AuthBinding.provider enum) for a stable provider_id
// and verified profile, built on a WorkOS usermanagement
// client (originally used for B2B
// tenant/org membership lookups; here it plays the role of the OAuth
// identity provider itself).
type OAuthBinder struct {
	Client   *usermanagement.Client
	ClientID string
}

func NewOAuthBinder(client *usermanagement.Client, clientID string) *OAuthBinder {
	return &OAuthBinder{Client: client, ClientID: clientID}
}

// ExchangeCode resolves an authorization code into the provider_id
// (WorkOS user ID) and verified email to use as the AuthBinding row.
func (b *OAuthBinder) ExchangeCode(ctx context.Context, code string) (providerID, email string, err error) {
	resp, err := b.Client.AuthenticateWithCode(ctx, usermanagement.AuthenticateWithCodeOpts{
		ClientID: b.ClientID,
		Code:     code,
	})
	if err != nil {
		return "", "", apperr.New(apperr.Unauthorized, fmt.Sprintf("oauth exchange failed: %v", err))
	}
	return resp.User.ID, resp.User.Email, nil
}

// LoginOrRegisterOAuth binds provider=google identities: if a verified
// binding already exists for this provider_id, log the user in; otherwise
// register a brand-new user the same way Register does, without a
// verification code (the OAuth provider already proved control).
func (s *Service) LoginOrRegisterOAuth(ctx context.Context, provider Provider, providerID, displayName, device string) (*User, TokenPair, error) {
	now := s.Clock.Now()

	binding, err := s.Store.FindBinding(ctx, provider, providerID)
	if err == nil {
		if err := s.Store.RecordLoginSuccess(ctx, binding.ID, now); err != nil {
			return nil, TokenPair{}, err
		}
		user, err := s.Store.GetUser(ctx, binding.UserID)
		if err != nil {
			return nil, TokenPair{}, err
		}
		tokens, err := s.issueTokenPair(ctx, binding.UserID, device, now)
		return user, tokens, err
	}

	tx, err := s.Store.BeginTx(ctx)
	if err != nil {
		return nil, TokenPair{}, err
	}
	defer tx.Rollback(ctx)

	userID, err := s.Store.CreateUser(ctx, tx, displayName)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if err := s.Store.CreateBinding(ctx, tx, userID, provider, providerID, nil); err != nil {
		return nil, TokenPair{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, TokenPair{}, err
	}

	user, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	tokens, err := s.issueTokenPair(ctx, userID, device, now)
	return user, tokens, err
}
