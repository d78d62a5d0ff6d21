package handlers

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"

	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/http/response"
	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/services"
)

var verifyPage = template.Must(template.New("verify").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Certificate verification</title></head>
<body>
{{- if .Valid}}
<h1>Certificate verified</h1>
<p><strong>{{.UserName}}</strong> completed <strong>{{.CourseTitle}}</strong> on {{.IssuedAt}}.</p>
<p>Code: {{.Code}}</p>
{{- else}}
<h1>Certificate not found</h1>
<p>No certificate matches code {{.Code}}.</p>
{{- end}}
</body>
</html>
`))

type verifyView struct {
	Valid       bool   `json:"valid"`
	Code        string `json:"code"`
	UserName    string `json:"user_name,omitempty"`
	CourseTitle string `json:"course_title,omitempty"`
	IssuedAt    string `json:"issued_at,omitempty"`
}

type CertificateHandler struct {
	certificateService services.CertificateService
}

func NewCertificateHandler(certificateService services.CertificateService) *CertificateHandler {
	return &CertificateHandler{certificateService: certificateService}
}

// GetCertificate issues on first request and returns the PDF, or JSON with
// ?format=json.
func (ch *CertificateHandler) GetCertificate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	cert, err := ch.certificateService.Issue(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if c.Query("format") == "json" {
		response.RespondOK(c, gin.H{
			"certificate": cert,
			"verify_url":  ch.certificateService.VerifyURL(cert.Code),
		})
		return
	}
	pdf, err := ch.certificateService.RenderPDF(c.Request.Context(), cert)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="certificate-%s.pdf"`, cert.Code))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// Verify answers JSON by default and an HTML page when the client prefers it.
func (ch *CertificateHandler) Verify(c *gin.Context) {
	code := c.Param("code")
	cert, err := ch.certificateService.Verify(c.Request.Context(), code)
	html := c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML
	if err != nil {
		if html && apierr.KindOf(err) == apierr.KindNotFound {
			c.Render(http.StatusNotFound, render.HTML{Template: verifyPage, Name: "verify", Data: verifyView{Code: code}})
			return
		}
		response.RespondErr(c, err)
		return
	}
	view := toVerifyView(cert)
	if html {
		c.Render(http.StatusOK, render.HTML{Template: verifyPage, Name: "verify", Data: view})
		return
	}
	response.RespondOK(c, view)
}

func toVerifyView(cert *types.Certificate) verifyView {
	return verifyView{
		Valid:       true,
		Code:        cert.Code,
		UserName:    cert.UserName,
		CourseTitle: cert.CourseTitle,
		IssuedAt:    cert.IssuedAt.UTC().Format(time.DateOnly),
	}
}
