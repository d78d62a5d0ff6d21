package services

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursegen-backend/internal/platform/sendgrid"
)

type fakeMailer struct {
	sent []sendgrid.SendEmailRequest
}

func (m *fakeMailer) Send(ctx context.Context, req sendgrid.SendEmailRequest) (*sendgrid.SendEmailResult, error) {
	m.sent = append(m.sent, req)
	return &sendgrid.SendEmailResult{StatusCode: http.StatusAccepted}, nil
}

type fakeGoogle struct {
	ident *GoogleIdentity
	err   error
}

func (g *fakeGoogle) Verify(ctx context.Context, idToken string) (*GoogleIdentity, error) {
	return g.ident, g.err
}

func newAuth(e *testEnv, google GoogleVerifier, mailer sendgrid.Client) AuthService {
	return NewAuthService(e.db, e.log, e.userRepo, google, mailer, "test-secret", time.Hour, "https://app.example.com/")
}

func TestSignupAndLogin(t *testing.T) {
	e := newTestEnv(t)
	auth := newAuth(e, nil, nil)
	ctx := context.Background()

	sess, err := auth.Signup(ctx, SignupInput{Email: "  Ada@Example.COM ", Password: "correct horse", FirstName: "Ada"})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if sess.User.Email != "ada@example.com" || sess.User.Plan != types.PlanFree || sess.Token == "" {
		t.Fatalf("unexpected session: %+v", sess.User)
	}

	_, err = auth.Signup(ctx, SignupInput{Email: "ada@example.com", Password: "another password"})
	if apierr.KindOf(err) != apierr.KindConflict {
		t.Fatalf("duplicate signup: %v", err)
	}
	_, err = auth.Signup(ctx, SignupInput{Email: "bob@example.com", Password: "short"})
	if apierr.KindOf(err) != apierr.KindValidation {
		t.Fatalf("short password: %v", err)
	}

	if _, err := auth.Login(ctx, "ADA@example.com", "correct horse"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	for _, tc := range []struct{ email, password string }{
		{"ada@example.com", "wrong password"},
		{"nobody@example.com", "correct horse"},
	} {
		_, err := auth.Login(ctx, tc.email, tc.password)
		ae, ok := apierr.As(err)
		if !ok || ae.Status != http.StatusUnauthorized || ae.Code != "invalid_credentials" {
			t.Fatalf("Login(%s): %v", tc.email, err)
		}
	}
}

func TestSetContextFromTokenReadsCurrentPlan(t *testing.T) {
	e := newTestEnv(t)
	auth := newAuth(e, nil, nil)
	ctx := context.Background()

	sess, err := auth.Signup(ctx, SignupInput{Email: "plan@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if err := e.userRepo.UpdatePlan(ctx, nil, sess.User.ID, types.PlanMonthly, nil); err != nil {
		t.Fatalf("UpdatePlan: %v", err)
	}
	authed, err := auth.SetContextFromToken(ctx, sess.Token)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := ctxutil.GetRequestData(authed)
	if rd == nil || rd.UserID != sess.User.ID || rd.Plan != string(types.PlanMonthly) {
		t.Fatalf("unexpected request data: %+v", rd)
	}

	if _, err := auth.SetContextFromToken(ctx, sess.Token+"x"); apierr.KindOf(err) != apierr.KindUnauthorized {
		t.Fatalf("tampered token: %v", err)
	}
	other := NewAuthService(e.db, e.log, e.userRepo, nil, nil, "other-secret", time.Hour, "")
	if _, err := other.SetContextFromToken(ctx, sess.Token); apierr.KindOf(err) != apierr.KindUnauthorized {
		t.Fatalf("wrong secret: %v", err)
	}
}

func TestLoginWithGoogle(t *testing.T) {
	e := newTestEnv(t)
	google := &fakeGoogle{ident: &GoogleIdentity{Subject: "g1", Email: "G@Example.com", EmailVerified: true, FirstName: "Grace"}}
	auth := newAuth(e, google, nil)
	ctx := context.Background()

	first, err := auth.LoginWithGoogle(ctx, "token")
	if err != nil {
		t.Fatalf("LoginWithGoogle: %v", err)
	}
	if first.User.Provider != types.ProviderGoogle || first.User.Email != "g@example.com" {
		t.Fatalf("unexpected user: %+v", first.User)
	}
	second, err := auth.LoginWithGoogle(ctx, "token")
	if err != nil || second.User.ID != first.User.ID {
		t.Fatalf("second login should reuse the account: %v", err)
	}

	// Google accounts have no password.
	if _, err := auth.Login(ctx, "g@example.com", ""); apierr.KindOf(err) != apierr.KindUnauthorized {
		t.Fatalf("password login for google account: %v", err)
	}

	google.err = errors.New("bad audience")
	if _, err := auth.LoginWithGoogle(ctx, "token"); apierr.KindOf(err) != apierr.KindUnauthorized {
		t.Fatalf("rejected token: %v", err)
	}
	if _, err := newAuth(e, nil, nil).LoginWithGoogle(ctx, "token"); apierr.KindOf(err) != apierr.KindNotConfigured {
		t.Fatalf("unconfigured google: %v", err)
	}
}

func TestPasswordReset(t *testing.T) {
	e := newTestEnv(t)
	mailer := &fakeMailer{}
	auth := newAuth(e, nil, mailer)
	ctx := context.Background()

	if _, err := auth.Signup(ctx, SignupInput{Email: "reset@example.com", Password: "old password"}); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if err := auth.ForgotPassword(ctx, "missing@example.com"); err != nil {
		t.Fatalf("unknown email must not error: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("no email expected for unknown account")
	}
	if err := auth.ForgotPassword(ctx, "reset@example.com"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(mailer.sent))
	}
	link := mailer.sent[0].Text[strings.Index(mailer.sent[0].Text, "https://"):]
	link = strings.Fields(link)[0]
	u, err := url.Parse(link)
	if err != nil || u.Path != "/reset-password" {
		t.Fatalf("unexpected link %q", link)
	}
	token := u.Query().Get("token")
	if len(token) != 64 {
		t.Fatalf("unexpected token %q", token)
	}

	ae, _ := apierr.As(auth.ResetPassword(ctx, "not-the-token", "new password"))
	if ae == nil || ae.Code != "invalid_or_expired_token" {
		t.Fatalf("wrong token: %v", ae)
	}
	if err := auth.ResetPassword(ctx, token, "new password"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if err := auth.ResetPassword(ctx, token, "newer password"); err == nil {
		t.Fatalf("token must be single use")
	}
	if _, err := auth.Login(ctx, "reset@example.com", "new password"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestClearExpiredResetTokens(t *testing.T) {
	e := newTestEnv(t)
	auth := newAuth(e, nil, nil).(*authService)
	ctx := context.Background()

	u := e.user(t, types.PlanFree)
	if err := e.userRepo.SetResetToken(ctx, nil, u.ID, hashToken("t"), time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("SetResetToken: %v", err)
	}
	n, err := auth.ClearExpiredResetTokens(ctx)
	if err != nil || n != 1 {
		t.Fatalf("cleared=%d err=%v", n, err)
	}
	if _, err := auth.Me(ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: uuid.New()})); apierr.KindOf(err) != apierr.KindUnauthorized {
		t.Fatalf("Me for missing user: %v", err)
	}
}
