package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/observability"
	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/certpdf"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

const (
	// codeAlphabet drops 0, 1, I, L, O and U.
	codeAlphabet       = "ABCDEFGHJKMNPQRSTVWXYZ23456789"
	codeGenerateTries  = 5
	DefaultMinProgress = 100
)

type CertificateService interface {
	// Issue returns the caller's certificate for the course, creating it on
	// first request once progress reaches the minimum.
	Issue(ctx context.Context, courseID uuid.UUID) (*types.Certificate, error)
	RenderPDF(ctx context.Context, cert *types.Certificate) ([]byte, error)
	Verify(ctx context.Context, code string) (*types.Certificate, error)
	VerifyURL(code string) string
}

type certificateService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	courseRepo    repos.CourseRepo
	progressRepo  repos.ProgressRepo
	certRepo      repos.CertificateRepo
	renderer      *certpdf.Renderer
	minPercent    int
	publicBaseURL string
	group         singleflight.Group
	newCode       func() (string, error)
}

func NewCertificateService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	courseRepo repos.CourseRepo,
	progressRepo repos.ProgressRepo,
	certRepo repos.CertificateRepo,
	renderer *certpdf.Renderer,
	minPercent int,
	publicBaseURL string,
) CertificateService {
	serviceLog := log.With("service", "CertificateService")
	if minPercent <= 0 || minPercent > 100 {
		minPercent = DefaultMinProgress
	}
	return &certificateService{
		db:            db,
		log:           serviceLog,
		userRepo:      userRepo,
		courseRepo:    courseRepo,
		progressRepo:  progressRepo,
		certRepo:      certRepo,
		renderer:      renderer,
		minPercent:    minPercent,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		newCode:       NewCertificateCode,
	}
}

func (cs *certificateService) Issue(ctx context.Context, courseID uuid.UUID) (*types.Certificate, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	// The shared call outlives any single caller; each caller still stops
	// waiting when its own context ends.
	ch := cs.group.DoChan(userID.String()+":"+courseID.String(), func() (interface{}, error) {
		return cs.issue(context.WithoutCancel(ctx), userID, courseID)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			observability.Current().IncCertificate("error")
			return nil, res.Err
		}
		if res.Shared {
			cs.log.Debug("certificate request collapsed", "course_id", courseID)
		}
		return res.Val.(*types.Certificate), nil
	}
}

func (cs *certificateService) issue(ctx context.Context, userID, courseID uuid.UUID) (*types.Certificate, error) {
	existing, err := cs.certRepo.GetByUserCourse(ctx, nil, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("load certificate: %w", err)
	}
	if existing != nil {
		observability.Current().IncCertificate("existing")
		return existing, nil
	}

	c, err := loadReadable(ctx, cs.courseRepo, nil, courseID)
	if err != nil {
		return nil, err
	}
	p, err := cs.progressRepo.Get(ctx, nil, userID, c.ID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if _, percent := ComputeProgress(c, p.Completed()); percent < cs.minPercent {
		return nil, apierr.Newf(apierr.KindForbidden, "course not completed")
	}
	users, err := cs.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if len(users) == 0 {
		return nil, apierr.Newf(apierr.KindUnauthorized, "account no longer exists")
	}

	for attempt := 0; attempt < codeGenerateTries; attempt++ {
		code, err := cs.newCode()
		if err != nil {
			return nil, fmt.Errorf("generate certificate code: %w", err)
		}
		taken, err := cs.certRepo.CodeExists(ctx, nil, code)
		if err != nil {
			return nil, fmt.Errorf("check certificate code: %w", err)
		}
		if taken {
			continue
		}
		cert := &types.Certificate{
			UserID:      userID,
			CourseID:    c.ID,
			Code:        code,
			UserName:    users[0].DisplayName(),
			CourseTitle: c.Title,
			IssuedAt:    time.Now().UTC(),
		}
		created, err := cs.certRepo.CreateIfAbsent(ctx, nil, cert)
		if err != nil {
			return nil, fmt.Errorf("create certificate: %w", err)
		}
		if created {
			cs.log.Info("certificate issued", "course_id", c.ID, "code", code)
			observability.Current().IncCertificate("issued")
			return cert, nil
		}
		// Either another instance issued one for this course or the code was
		// taken in between.
		if winner, err := cs.certRepo.GetByUserCourse(ctx, nil, userID, c.ID); err != nil {
			return nil, fmt.Errorf("load certificate: %w", err)
		} else if winner != nil {
			return winner, nil
		}
	}
	return nil, apierr.Newf(apierr.KindInternal, "could not allocate a unique certificate code")
}

func (cs *certificateService) RenderPDF(ctx context.Context, cert *types.Certificate) ([]byte, error) {
	if cs.renderer == nil {
		return nil, apierr.Newf(apierr.KindNotConfigured, "certificate rendering is not available")
	}
	pdf, err := cs.renderer.RenderPDF(certpdf.Data{
		Name:        cert.UserName,
		CourseTitle: cert.CourseTitle,
		IssuedAt:    cert.IssuedAt,
		Code:        cert.Code,
		VerifyURL:   cs.VerifyURL(cert.Code),
	})
	if err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return pdf, nil
}

func (cs *certificateService) Verify(ctx context.Context, code string) (*types.Certificate, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	cert, err := cs.certRepo.GetByCode(ctx, nil, code)
	if err != nil {
		return nil, fmt.Errorf("load certificate: %w", err)
	}
	if cert == nil {
		return nil, apierr.Newf(apierr.KindNotFound, "certificate not found")
	}
	return cert, nil
}

func (cs *certificateService) VerifyURL(code string) string {
	return cs.publicBaseURL + "/verify/" + code
}

// NewCertificateCode returns a random code shaped CG-XXXX-XXXX.
func NewCertificateCode() (string, error) {
	var b strings.Builder
	b.WriteString("CG-")
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < 8; i++ {
		if i == 4 {
			b.WriteByte('-')
		}
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}
