package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/harentsoaR/clinic-reception-api/internal/constvars"
	"github.com/harentsoaR/clinic-reception-api/internal/exceptions"
	"github.com/harentsoaR/clinic-reception-api/internal/identity"
	"github.com/harentsoaR/clinic-reception-api/internal/models"
	"github.com/harentsoaR/clinic-reception-api/internal/session"
	"github.com/harentsoaR/clinic-reception-api/internal/store"
	"github.com/harentsoaR/clinic-reception-api/internal/utils"
	"go.uber.org/zap"
)

const RoleReceptionist = "receptionist"

var errTokenRevoked = errors.New("token revoked")

type LoginResult struct {
	SessionToken string                     `json:"sessionToken"`
	ExpiresAt    time.Time                  `json:"expiresAt"`
	Receptionist models.ReceptionistProfile `json:"receptionist"`
	Doctors      []models.DoctorSummary     `json:"doctors"`
}

// Session is what a valid token proves.
type Session struct {
	ReceptionistID identity.ID
	TokenID        string
	ExpiresAt      time.Time
}

// Profile is a receptionist together with the doctors they work for.
type Profile struct {
	Receptionist models.ReceptionistProfile `json:"receptionist"`
	Doctors      []models.DoctorSummary     `json:"doctors"`
}

type AuthService struct {
	repos   Repositories
	doctors *DoctorService
	tokens  *utils.TokenIssuer
	revoker session.Revoker
	now     func() time.Time
	log     *zap.Logger
}

func NewAuthService(repos Repositories, doctors *DoctorService, tokens *utils.TokenIssuer, revoker session.Revoker, log *zap.Logger) *AuthService {
	return &AuthService{repos: repos, doctors: doctors, tokens: tokens, revoker: revoker, now: time.Now, log: log}
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	requestID := constvars.RequestID(ctx)
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, exceptions.ErrMissingField("email")
	}
	if password == "" {
		return nil, exceptions.ErrMissingField("password")
	}

	rec, err := s.repos.Receptionists.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, exceptions.ErrInvalidCredentials(err)
	}
	if err != nil {
		return nil, storeError(err, "Receptionist", "find receptionist")
	}

	ok, needsUpgrade := utils.VerifyPassword(password, rec.PasswordHash)
	if !ok {
		s.log.Info("authService.Login rejected credentials",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String("receptionistId", rec.ID.Hex()),
		)
		return nil, exceptions.ErrInvalidCredentials(nil)
	}
	if !rec.Active() {
		return nil, exceptions.ErrAccountInactive()
	}
	if len(rec.LinkedDoctorIDs) == 0 {
		return nil, exceptions.ErrNoLinkedDoctors()
	}

	var upgraded string
	if needsUpgrade {
		if upgraded, err = utils.HashPassword(password); err != nil {
			s.log.Warn("authService.Login could not hash legacy password",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.Error(err),
			)
			upgraded = ""
		}
	}
	if err := s.repos.Receptionists.RecordLogin(ctx, rec.ID, upgraded, s.now().UTC()); err != nil {
		s.log.Warn("authService.Login could not record login",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String("receptionistId", rec.ID.Hex()),
			zap.Error(err),
		)
	} else if upgraded != "" {
		s.log.Info("upgraded legacy plaintext credential", zap.String("receptionistId", rec.ID.Hex()))
	}

	doctors, err := s.doctors.FindByIDs(ctx, rec.LinkedDoctorIDs)
	if err != nil {
		return nil, err
	}

	token, claims, err := s.tokens.GenerateJWT(rec.ID.Hex(), RoleReceptionist)
	if err != nil {
		return nil, exceptions.ErrTokenGenerate(err)
	}

	s.log.Info("receptionist logged in",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String("receptionistId", rec.ID.Hex()),
	)
	return &LoginResult{
		SessionToken: token,
		ExpiresAt:    claims.ExpiresAt.Time,
		Receptionist: rec.Profile(),
		Doctors:      summaries(doctors),
	}, nil
}

// Authenticate checks a token's signature, expiry and revocation. It does
// not touch the receptionist collection.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, exceptions.ErrTokenMissing()
	}
	claims, err := s.tokens.ValidateJWT(token)
	if err != nil {
		return nil, exceptions.ErrTokenInvalidOrExpired(err)
	}
	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, exceptions.ErrStoreUnavailable(err)
	}
	if revoked {
		return nil, exceptions.ErrTokenInvalidOrExpired(errTokenRevoked)
	}
	id, err := identity.Parse(claims.ReceptionistID)
	if err != nil {
		return nil, exceptions.ErrTokenInvalidOrExpired(err)
	}
	sess := &Session{ReceptionistID: id, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}

// ValidateSession authenticates the token and confirms its receptionist
// still exists.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*Profile, error) {
	sess, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	profile, err := s.Profile(ctx, sess.ReceptionistID)
	var ce *exceptions.CustomError
	if errors.As(err, &ce) && ce.StatusCode == http.StatusNotFound {
		return nil, exceptions.ErrTokenInvalidOrExpired(err)
	}
	return profile, err
}

func (s *AuthService) Profile(ctx context.Context, receptionistID identity.ID) (*Profile, error) {
	rec, err := s.repos.Receptionists.Get(ctx, receptionistID)
	if err != nil {
		return nil, storeError(err, "Receptionist", "get receptionist")
	}
	doctors, err := s.doctors.FindByIDs(ctx, rec.LinkedDoctorIDs)
	if err != nil {
		return nil, err
	}
	profile := rec.Profile()
	if profile.LinkedDoctorIDs == nil {
		profile.LinkedDoctorIDs = []identity.ID{}
	}
	return &Profile{Receptionist: profile, Doctors: summaries(doctors)}, nil
}

// Logout revokes the token. Logging out with an already invalid token
// succeeds.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.ValidateJWT(strings.TrimSpace(token))
	if err != nil {
		return nil
	}
	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := s.revoker.Revoke(ctx, claims.ID, expiresAt); err != nil {
		return exceptions.ErrStoreUnavailable(err)
	}
	s.log.Info("receptionist logged out",
		zap.String(constvars.LoggingRequestIDKey, constvars.RequestID(ctx)),
		zap.String("receptionistId", claims.ReceptionistID),
	)
	return nil
}

func summaries(doctors []models.Doctor) []models.DoctorSummary {
	out := make([]models.DoctorSummary, len(doctors))
	for i := range doctors {
		out[i] = doctors[i].Summary()
	}
	return out
}
