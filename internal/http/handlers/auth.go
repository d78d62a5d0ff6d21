package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursegen-backend/internal/http/middleware"
	"github.com/yungbote/coursegen-backend/internal/http/response"
	"github.com/yungbote/coursegen-backend/internal/services"
)

type CookieConfig struct {
	Secure bool
	Domain string
}

type AuthHandler struct {
	authService services.AuthService
	cookie      CookieConfig
}

func NewAuthHandler(authService services.AuthService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{authService: authService, cookie: cookie}
}

func (ah *AuthHandler) Signup(c *gin.Context) {
	var req services.SignupInput
	if !bindJSON(c, &req) {
		return
	}
	session, err := ah.authService.Signup(c.Request.Context(), req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	ah.setSession(c, session)
	response.RespondCreated(c, session)
}

func (ah *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !bindJSON(c, &req) {
		return
	}
	session, err := ah.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	ah.setSession(c, session)
	response.RespondOK(c, session)
}

func (ah *AuthHandler) Google(c *gin.Context) {
	var req struct {
		IDToken string `json:"id_token"`
	}
	if !bindJSON(c, &req) {
		return
	}
	session, err := ah.authService.LoginWithGoogle(c.Request.Context(), req.IDToken)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	ah.setSession(c, session)
	response.RespondOK(c, session)
}

func (ah *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := ah.authService.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (ah *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := ah.authService.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (ah *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", ah.cookie.Domain, ah.cookie.Secure, true)
	response.RespondOK(c, gin.H{"ok": true})
}

func (ah *AuthHandler) Me(c *gin.Context) {
	user, err := ah.authService.Me(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"user":   user,
		"limits": user.Plan.Limits(),
	})
}

func (ah *AuthHandler) setSession(c *gin.Context, s *services.Session) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, s.Token, int(ah.authService.TokenTTL().Seconds()), "/", ah.cookie.Domain, ah.cookie.Secure, true)
}

