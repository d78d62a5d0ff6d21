package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/platform/sendgrid"
)

const (
	MinPasswordLength = 8
	ResetTokenTTL     = time.Hour
)

type JWTClaims struct {
	Plan string `json:"plan"`
	jwt.RegisteredClaims
}

type SignupInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *types.User `json:"user"`
}

type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	LoginWithGoogle(ctx context.Context, idToken string) (*Session, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	Me(ctx context.Context) (*types.User, error)
	// SetContextFromToken validates a session token and attaches the caller
	// to ctx. The plan comes from the database, not the token.
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	ClearExpiredResetTokens(ctx context.Context) (int64, error)
	TokenTTL() time.Duration
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	google        GoogleVerifier
	mailer        sendgrid.Client
	jwtSecretKey  string
	tokenTTL      time.Duration
	publicBaseURL string
	now           func() time.Time
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	google GoogleVerifier,
	mailer sendgrid.Client,
	jwtSecretKey string,
	tokenTTL time.Duration,
	publicBaseURL string,
) AuthService {
	serviceLog := log.With("service", "AuthService")
	if tokenTTL <= 0 {
		tokenTTL = 7 * 24 * time.Hour
	}
	return &authService{
		db:            db,
		log:           serviceLog,
		userRepo:      userRepo,
		google:        google,
		mailer:        mailer,
		jwtSecretKey:  jwtSecretKey,
		tokenTTL:      tokenTTL,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		now:           time.Now,
	}
}

func (as *authService) TokenTTL() time.Duration { return as.tokenTTL }

func (as *authService) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	email := types.NormalizeEmail(in.Email)
	if !validEmail(email) {
		return nil, apierr.Newf(apierr.KindValidation, "a valid email is required")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, apierr.Newf(apierr.KindValidation, "password must be at least %d characters", MinPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &types.User{
		Email:     email,
		Provider:  types.ProviderLocal,
		Password:  string(hash),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Plan:      types.PlanFree,
	}
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := as.userRepo.EmailExists(ctx, tx, email)
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if exists {
			return apierr.Newf(apierr.KindConflict, "an account with this email already exists")
		}
		if _, err := as.userRepo.Create(ctx, tx, []*types.User{user}); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	as.log.Info("user signed up", "user_id", user.ID)
	return as.newSession(user)
}

func (as *authService) Login(ctx context.Context, email, password string) (*Session, error) {
	invalid := &apierr.Error{
		Status: http.StatusUnauthorized,
		Code:   "invalid_credentials",
		Kind:   apierr.KindUnauthorized,
		Err:    errors.New("invalid email or password"),
	}

	users, err := as.userRepo.GetByEmails(ctx, nil, []string{email})
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if len(users) == 0 {
		return nil, invalid
	}
	user := users[0]
	if user.Provider != types.ProviderLocal || user.Password == "" {
		return nil, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, invalid
	}
	return as.newSession(user)
}

func (as *authService) LoginWithGoogle(ctx context.Context, idToken string) (*Session, error) {
	if as.google == nil {
		return nil, apierr.Newf(apierr.KindNotConfigured, "google sign-in is not configured")
	}
	if strings.TrimSpace(idToken) == "" {
		return nil, apierr.Newf(apierr.KindValidation, "id_token is required")
	}
	ident, err := as.google.Verify(ctx, idToken)
	if err != nil {
		as.log.Warn("google token rejected", "error", err)
		return nil, apierr.Newf(apierr.KindUnauthorized, "invalid google token")
	}
	email := types.NormalizeEmail(ident.Email)
	if email == "" || !ident.EmailVerified {
		return nil, apierr.Newf(apierr.KindUnauthorized, "google account email is not verified")
	}

	var user *types.User
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users, err := as.userRepo.GetByEmails(ctx, tx, []string{email})
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		if len(users) > 0 {
			user = users[0]
			return nil
		}
		user = &types.User{
			Email:     email,
			Provider:  types.ProviderGoogle,
			FirstName: ident.FirstName,
			LastName:  ident.LastName,
			Plan:      types.PlanFree,
		}
		if _, err := as.userRepo.Create(ctx, tx, []*types.User{user}); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		as.log.Info("user created from google sign-in", "user_id", user.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return as.newSession(user)
}

func (as *authService) ForgotPassword(ctx context.Context, email string) error {
	users, err := as.userRepo.GetByEmails(ctx, nil, []string{email})
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if len(users) == 0 || users[0].Provider != types.ProviderLocal {
		return nil
	}
	user := users[0]

	token, hash, err := newResetToken()
	if err != nil {
		return fmt.Errorf("reset token: %w", err)
	}
	if err := as.userRepo.SetResetToken(ctx, nil, user.ID, hash, as.now().UTC().Add(ResetTokenTTL)); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	if as.mailer == nil {
		as.log.Warn("email not configured, reset link not sent", "user_id", user.ID)
		return nil
	}
	link := as.publicBaseURL + "/reset-password?token=" + url.QueryEscape(token)
	_, err = as.mailer.Send(ctx, sendgrid.SendEmailRequest{
		To:         sendgrid.EmailAddress{Email: user.Email, Name: user.DisplayName()},
		Subject:    "Reset your password",
		Text:       "Use this link within one hour to choose a new password:\n\n" + link + "\n\nIf you did not ask for this, ignore this email.",
		HTML:       `<p>Use this link within one hour to choose a new password:</p><p><a href="` + link + `">Reset password</a></p><p>If you did not ask for this, ignore this email.</p>`,
		Categories: []string{"password_reset"},
	})
	if err != nil {
		as.log.Error("failed to send reset email", "user_id", user.ID, "error", err)
	}
	return nil
}

func (as *authService) ResetPassword(ctx context.Context, token, password string) error {
	invalid := &apierr.Error{
		Status: http.StatusBadRequest,
		Code:   "invalid_or_expired_token",
		Kind:   apierr.KindValidation,
		Err:    errors.New("reset link is invalid or expired"),
	}

	if len(password) < MinPasswordLength {
		return apierr.Newf(apierr.KindValidation, "password must be at least %d characters", MinPasswordLength)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return invalid
	}
	user, err := as.userRepo.GetByResetTokenHash(ctx, nil, hashToken(token), as.now().UTC())
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return invalid
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := as.userRepo.UpdatePassword(ctx, nil, user.ID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	as.log.Info("password reset", "user_id", user.ID)
	return nil
}

func (as *authService) Me(ctx context.Context) (*types.User, error) {
	userID := ctxutil.UserID(ctx)
	if userID == uuid.Nil {
		return nil, apierr.Newf(apierr.KindUnauthorized, "not signed in")
	}
	users, err := as.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if len(users) == 0 {
		return nil, apierr.Newf(apierr.KindUnauthorized, "account no longer exists")
	}
	return users[0], nil
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, apierr.Newf(apierr.KindUnauthorized, "missing session token")
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(as.now))
	if err != nil {
		return ctx, apierr.Wrap(apierr.KindUnauthorized, fmt.Errorf("invalid session token: %w", err))
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return ctx, apierr.Newf(apierr.KindUnauthorized, "invalid or expired session token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, apierr.Newf(apierr.KindUnauthorized, "invalid user id in token")
	}
	users, err := as.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return ctx, fmt.Errorf("load user: %w", err)
	}
	if len(users) == 0 {
		return ctx, apierr.Newf(apierr.KindUnauthorized, "account no longer exists")
	}
	rd := &ctxutil.RequestData{
		UserID: userID,
		Plan:   string(users[0].Plan),
		Token:  tokenString,
	}
	return ctxutil.WithRequestData(ctx, rd), nil
}

func (as *authService) ClearExpiredResetTokens(ctx context.Context) (int64, error) {
	return as.userRepo.ClearExpiredResetTokens(ctx, nil, as.now().UTC())
}

func (as *authService) newSession(user *types.User) (*Session, error) {
	now := as.now()
	expires := now.Add(as.tokenTTL)
	claims := JWTClaims{
		Plan: string(user.Plan),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(as.jwtSecretKey))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: expires.UTC(), User: user}, nil
}

func newResetToken() (token, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(buf)
	return token, hashToken(token), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func validEmail(email string) bool {
	local, domain, ok := strings.Cut(email, "@")
	return ok && local != "" && strings.Contains(domain, ".") && !strings.ContainsAny(email, " \t\n")
}
