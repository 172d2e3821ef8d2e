package identity

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"

	"github.com/quesbackend/ques-core/internal/apperr"
	"github.com/quesbackend/ques-core/internal/audit"
	"github.com/quesbackend/ques-core/internal/clock"
	"github.com/quesbackend/ques-core/internal/collaborators"
	"github.com/quesbackend/ques-core/internal/password"
)

const (
	codeTTL           = 10 * time.Minute
	codeMaxAttempts   = 3
	refreshTokenTTL   = 30 * 24 * time.Hour
	lockoutThreshold  = 5
	onlineWindow      = 15 * time.Minute
	sessionHardTTL    = 7 * 24 * time.Hour
)

// Service implements registration, login, code verification, token
// refresh, and session tracking, composed from Store (persistence),
// Clock, and the Notifier collaborator.
type Service struct {
	Store    *Store
	Clock    clock.Clock
	JWT      JWTCfg
	Notifier collaborators.Notifier
	Audit    *audit.Log
}

func NewService(store *Store, clk clock.Clock, jwtCfg JWTCfg, notifier collaborators.Notifier, auditLog *audit.Log) *Service {
	return &Service{Store: store, Clock: clk, JWT: jwtCfg, Notifier: notifier, Audit: auditLog}
}

func hashRefreshToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// SendCode issues a fresh verification code, invalidating any prior unused
// one for the same (provider, provider_id, purpose), and hands it to the
// notifier. Rate limiting is not done here: the HTTP middleware applies the
// send_code class (3 per 300 s, keyed by client IP and path). No
// per-identity limit is applied to this operation.
func (s *Service) SendCode(ctx context.Context, provider Provider, providerID string, purpose CodePurpose) error {
	now := s.Clock.Now()
	code := clock.NewVerificationCode(6)

	tx, err := s.Store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := s.Store.InvalidatePriorCodes(ctx, tx, provider, providerID, purpose, now); err != nil {
		return err
	}
	if err := s.Store.CreateCode(ctx, tx, provider, providerID, purpose, hashCode(code), now, now.Add(codeTTL), codeMaxAttempts); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	templateID := "verification_code_" + string(purpose)
	if _, err := s.Notifier.Send(ctx, providerID, templateID, map[string]string{"code": code}); err != nil {
		return apperr.New(apperr.UpstreamTimeout, "failed to deliver verification code")
	}
	return nil
}

// VerifyCode is atomic: find the unique live code, enforce attempt cap,
// increment attempts, and mark used on match. Returns true exactly once
// per issued code.
func (s *Service) VerifyCode(ctx context.Context, provider Provider, providerID, code string, purpose CodePurpose) (bool, error) {
	now := s.Clock.Now()

	vc, err := s.Store.FindLiveCode(ctx, provider, providerID, purpose)
	if errors.Is(err, ErrNotFound) {
		return false, apperr.CodeInvalid("no pending verification code")
	}
	if err != nil {
		return false, err
	}
	if now.After(vc.ExpiresAt) {
		return false, apperr.CodeInvalid("verification code expired")
	}
	if vc.Attempts >= vc.MaxAttempts {
		return false, apperr.CodeInvalid("too many attempts")
	}

	attempts, err := s.Store.IncrementCodeAttempts(ctx, vc.ID)
	if err != nil {
		return false, err
	}
	if attempts > vc.MaxAttempts {
		return false, apperr.CodeInvalid("too many attempts")
	}

	if subtle.ConstantTimeCompare([]byte(hashCode(code)), []byte(vc.CodeHash)) != 1 {
		return false, nil
	}

	if err := s.Store.MarkCodeUsed(ctx, vc.ID, now); err != nil {
		return false, err
	}
	return true, nil
}

// Register creates User + AuthBinding from a fresh, matching verification
// code, then issues tokens. It fails with AuthConflict when a verified
// binding already exists for the identity and with CodeInvalid for a
// missing, expired or wrong code; the HTTP handler returns these errors
// unchanged.
func (s *Service) Register(ctx context.Context, provider Provider, providerID, code, displayName string, plainPassword *string) (*User, TokenPair, error) {
	now := s.Clock.Now()

	if _, err := s.Store.FindBinding(ctx, provider, providerID); err == nil {
		return nil, TokenPair{}, apperr.AuthConflict("account already exists for this identity")
	} else if !errors.Is(err, ErrNotFound) {
		return nil, TokenPair{}, err
	}

	ok, err := s.VerifyCode(ctx, provider, providerID, code, PurposeRegister)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if !ok {
		return nil, TokenPair{}, apperr.CodeInvalid("invalid or expired code")
	}

	var passwordHash *string
	if plainPassword != nil {
		h, err := password.Hash(*plainPassword)
		if err != nil {
			return nil, TokenPair{}, apperr.PolicyViolation(err.Error())
		}
		passwordHash = &h
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
	if err := s.Store.CreateBinding(ctx, tx, userID, provider, providerID, passwordHash); err != nil {
		return nil, TokenPair{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, TokenPair{}, err
	}

	user, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return nil, TokenPair{}, err
	}

	tokens, err := s.issueTokenPair(ctx, userID, "", now)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, tokens, nil
}

// Login authenticates against either a verification code (phone) or a
// password (email). On failure it increments
// failed_attempts and locks the binding for 15 minutes at the 5th failure.
// The returned error never distinguishes "no such account" from "wrong
// credential."
func (s *Service) Login(ctx context.Context, provider Provider, providerID string, code *string, plainPassword *string, device string) (*User, TokenPair, error) {
	now := s.Clock.Now()
	const genericFailure = "invalid credentials"

	binding, err := s.Store.FindBinding(ctx, provider, providerID)
	if errors.Is(err, ErrNotFound) {
		s.auditFailure(ctx, nil, "", genericFailure)
		return nil, TokenPair{}, apperr.New(apperr.Unauthorized, genericFailure)
	}
	if err != nil {
		return nil, TokenPair{}, err
	}

	if binding.LockedUntil != nil && now.Before(*binding.LockedUntil) {
		s.auditFailure(ctx, &binding.UserID, "", "account locked")
		return nil, TokenPair{}, apperr.New(apperr.Unauthorized, genericFailure)
	}

	var credentialOK bool
	switch {
	case code != nil:
		credentialOK, err = s.VerifyCode(ctx, provider, providerID, *code, PurposeLogin)
		if err != nil {
			if ae, ok := apperr.As(err); ok && ae.Kind == apperr.InvalidArgument {
				credentialOK = false
			} else {
				return nil, TokenPair{}, err
			}
		}
	case plainPassword != nil:
		if binding.PasswordHash == nil {
			credentialOK = false
		} else {
			credentialOK, err = password.Verify(*plainPassword, *binding.PasswordHash)
			if err != nil {
				return nil, TokenPair{}, err
			}
		}
	default:
		return nil, TokenPair{}, apperr.New(apperr.InvalidArgument, "credential required")
	}

	if !credentialOK {
		attempts, lockedUntil, ferr := s.Store.RecordLoginFailure(ctx, binding.ID, now)
		if ferr != nil {
			return nil, TokenPair{}, ferr
		}
		if attempts >= lockoutThreshold && lockedUntil != nil {
			s.Audit.Record(ctx, audit.AccountLocked, &binding.UserID, "", "5 failed login attempts")
		}
		s.auditFailure(ctx, &binding.UserID, "", genericFailure)
		return nil, TokenPair{}, apperr.New(apperr.Unauthorized, genericFailure)
	}

	if err := s.Store.RecordLoginSuccess(ctx, binding.ID, now); err != nil {
		return nil, TokenPair{}, err
	}
	s.Audit.Record(ctx, audit.LoginSuccess, &binding.UserID, "", string(provider))

	user, err := s.Store.GetUser(ctx, binding.UserID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if user.Status != StatusActive {
		return nil, TokenPair{}, apperr.New(apperr.Forbidden, "account is not active")
	}

	tokens, err := s.issueTokenPair(ctx, binding.UserID, device, now)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, tokens, nil
}

func (s *Service) auditFailure(ctx context.Context, userID *int64, ip, detail string) {
	s.Audit.Record(ctx, audit.LoginFailure, userID, ip, detail)
}

func (s *Service) issueTokenPair(ctx context.Context, userID int64, device string, now time.Time) (TokenPair, error) {
	access, err := IssueAccessToken(s.JWT, userID, now)
	if err != nil {
		return TokenPair{}, err
	}

	refreshValue := clock.NewRefreshTokenValue()
	if err := s.Store.CreateRefreshToken(ctx, s.Store.DB, hashRefreshToken(refreshValue), userID, device, now, now.Add(refreshTokenTTL), nil); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refreshValue,
		ExpiresIn:    int(s.JWT.TTL.Seconds()),
	}, nil
}

// Refresh implements the rotation protocol: hash the
// presented token, reject if missing/revoked/expired, detect replay
// (revoked=true found on lookup means this token was already rotated away)
// by revoking the entire parent chain, otherwise rotate atomically.
func (s *Service) Refresh(ctx context.Context, presentedToken, device string) (TokenPair, error) {
	now := s.Clock.Now()
	hash := hashRefreshToken(presentedToken)

	rt, err := s.Store.FindRefreshToken(ctx, hash)
	if errors.Is(err, ErrNotFound) {
		return TokenPair{}, apperr.TokenInvalid("refresh token not recognized")
	}
	if err != nil {
		return TokenPair{}, err
	}

	if rt.Revoked {
		// Replay: this token was already rotated away once. Revoke the
		// whole descendant/ancestor chain and refuse.
		tx, txErr := s.Store.BeginTx(ctx)
		if txErr != nil {
			return TokenPair{}, txErr
		}
		defer tx.Rollback(ctx)
		if err := s.Store.RevokeChain(ctx, tx, rt.TokenHash, now); err != nil {
			return TokenPair{}, err
		}
		if err := tx.Commit(ctx); err != nil {
			return TokenPair{}, err
		}
		s.Audit.Record(ctx, audit.RefreshReplay, &rt.UserID, "", "refresh token replay detected, chain revoked")
		return TokenPair{}, apperr.TokenInvalid("refresh token already used")
	}

	if now.After(rt.ExpiresAt) {
		return TokenPair{}, apperr.TokenInvalid("refresh token expired")
	}

	tx, err := s.Store.BeginTx(ctx)
	if err != nil {
		return TokenPair{}, err
	}
	defer tx.Rollback(ctx)

	newValue := clock.NewRefreshTokenValue()
	newHash := hashRefreshToken(newValue)
	parent := rt.TokenHash
	if err := s.Store.CreateRefreshToken(ctx, tx, newHash, rt.UserID, device, now, now.Add(refreshTokenTTL), &parent); err != nil {
		return TokenPair{}, err
	}
	if err := s.Store.RevokeRefreshToken(ctx, tx, rt.TokenHash, now); err != nil {
		return TokenPair{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return TokenPair{}, err
	}

	access, err := IssueAccessToken(s.JWT, rt.UserID, now)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: access, RefreshToken: newValue, ExpiresIn: int(s.JWT.TTL.Seconds())}, nil
}

// Logout revokes the presented refresh token; a token that does not exist
// is treated as already logged out (no error).
func (s *Service) Logout(ctx context.Context, presentedToken string) error {
	hash := hashRefreshToken(presentedToken)
	if _, err := s.Store.FindRefreshToken(ctx, hash); errors.Is(err, ErrNotFound) {
		return nil
	} else if err != nil {
		return err
	}
	return s.Store.RevokeRefreshToken(ctx, s.Store.DB, hash, s.Clock.Now())
}

// CurrentUser verifies the access token, resolves the user, and checks
// status=active.
func (s *Service) CurrentUser(ctx context.Context, accessToken string) (*User, error) {
	userID, err := ValidateAccessToken(s.JWT, accessToken)
	if err != nil {
		return nil, apperr.New(apperr.Unauthorized, "invalid or expired access token")
	}
	user, err := s.Store.GetUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.New(apperr.Unauthorized, "user not found")
	}
	if err != nil {
		return nil, err
	}
	if user.Status != StatusActive {
		return nil, apperr.New(apperr.Forbidden, "account is not active")
	}
	return user, nil
}

// TouchSession opens or updates the caller's session for presence tracking
// (component E). Called by httpapi's auth middleware on every authenticated
// request.
func (s *Service) TouchSession(ctx context.Context, userID int64, sessionID, device, ip string) error {
	now := s.Clock.Now()
	if err := s.Store.TouchLastActive(ctx, userID, now); err != nil {
		return err
	}
	return s.Store.UpsertSession(ctx, userID, sessionID, device, ip, now, now.Add(sessionHardTTL))
}

// SweepSessions marks idle/expired sessions inactive; safe to call
// repeatedly.
func (s *Service) SweepSessions(ctx context.Context) (int64, error) {
	return s.Store.SweepExpiredSessions(ctx, s.Clock.Now(), onlineWindow, sessionHardTTL)
}

func (s *Service) OnlineCount(ctx context.Context) (int64, error) {
	return s.Store.CountOnline(ctx, s.Clock.Now(), onlineWindow)
}
