// Package certpdf renders course completion certificates as single page PDFs.
package certpdf

import (
	"bytes"
	"fmt"
	"image/color"
	"strings"
	"time"

	"github.com/fogleman/gg"
	"github.com/go-pdf/fpdf"
	"github.com/golang/freetype/truetype"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// A4 landscape at 150 DPI.
const (
	canvasW = 1754
	canvasH = 1240
	pageW   = 297.0
	pageH   = 210.0
)

type Data struct {
	Name        string
	CourseTitle string
	IssuedAt    time.Time
	Code        string
	VerifyURL   string
}

type Renderer struct {
	regular *truetype.Font
	bold    *truetype.Font
	italic  *truetype.Font
	accent  color.Color
}

func NewRenderer() (*Renderer, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	italic, err := truetype.Parse(goitalic.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse italic font: %w", err)
	}
	return &Renderer{
		regular: regular,
		bold:    bold,
		italic:  italic,
		accent:  color.NRGBA{R: 0x1f, G: 0x4e, B: 0x8c, A: 0xff},
	}, nil
}

// Faces cache glyphs and are not safe to share, so each render builds its own.
func face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingNone})
}

// RenderPNG draws the certificate raster.
func (r *Renderer) RenderPNG(d Data) ([]byte, error) {
	dc := gg.NewContext(canvasW, canvasH)
	dc.SetColor(color.White)
	dc.Clear()

	dc.SetColor(r.accent)
	dc.SetLineWidth(14)
	dc.DrawRectangle(40, 40, canvasW-80, canvasH-80)
	dc.Stroke()
	dc.SetLineWidth(3)
	dc.DrawRectangle(70, 70, canvasW-140, canvasH-140)
	dc.Stroke()

	cx := float64(canvasW) / 2

	dc.SetFontFace(face(r.bold, 84))
	dc.DrawStringAnchored("Certificate of Completion", cx, 250, 0.5, 0.5)

	dc.SetColor(color.NRGBA{R: 0x44, G: 0x44, B: 0x44, A: 0xff})
	dc.SetFontFace(face(r.italic, 40))
	dc.DrawStringAnchored("This certifies that", cx, 390, 0.5, 0.5)

	dc.SetColor(color.Black)
	nameSize := fitSize(dc, r.bold, d.Name, 96, 40, canvasW-400)
	dc.SetFontFace(face(r.bold, nameSize))
	dc.DrawStringAnchored(d.Name, cx, 510, 0.5, 0.5)

	dc.SetColor(color.NRGBA{R: 0x44, G: 0x44, B: 0x44, A: 0xff})
	dc.SetFontFace(face(r.italic, 40))
	dc.DrawStringAnchored("has successfully completed the course", cx, 630, 0.5, 0.5)

	dc.SetColor(r.accent)
	dc.SetFontFace(face(r.bold, 60))
	dc.DrawStringWrapped(d.CourseTitle, cx, 760, 0.5, 0.5, canvasW-500, 1.3, gg.AlignCenter)

	dc.SetColor(color.Black)
	dc.SetFontFace(face(r.regular, 34))
	dc.DrawString("Issued "+d.IssuedAt.UTC().Format("January 2, 2006"), 160, canvasH-200)
	dc.DrawString("Certificate ID "+d.Code, 160, canvasH-150)

	if strings.TrimSpace(d.VerifyURL) != "" {
		qr, err := qrcode.New(d.VerifyURL, qrcode.Medium)
		if err != nil {
			return nil, fmt.Errorf("qr code: %w", err)
		}
		qr.DisableBorder = true
		const qrSize = 240
		dc.DrawImage(qr.Image(qrSize), canvasW-160-qrSize, canvasH-130-qrSize)
		dc.SetFontFace(face(r.regular, 22))
		dc.DrawStringAnchored("Scan to verify", float64(canvasW-160-qrSize/2), float64(canvasH-100), 0.5, 0.5)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPDF wraps the raster in an A4 landscape page.
func (r *Renderer) RenderPDF(d Data) ([]byte, error) {
	png, err := r.RenderPNG(d)
	if err != nil {
		return nil, err
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Certificate "+d.Code, true)
	pdf.SetSubject(d.CourseTitle, true)
	pdf.SetCreator("coursegen", false)
	pdf.SetCreationDate(d.IssuedAt.UTC())
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("certificate", opts, bytes.NewReader(png))
	pdf.ImageOptions("certificate", 0, 0, pageW, pageH, false, opts, 0, "")
	if d.VerifyURL != "" {
		// Clickable area over the QR code.
		pdf.LinkString(pageW-70, pageH-62, 40, 40, d.VerifyURL)
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return out.Bytes(), nil
}

// fitSize shrinks the font until text fits within maxWidth pixels.
func fitSize(dc *gg.Context, f *truetype.Font, text string, start, minSize float64, maxWidth int) float64 {
	size := start
	for size > minSize {
		dc.SetFontFace(face(f, size))
		if w, _ := dc.MeasureString(text); w <= float64(maxWidth) {
			return size
		}
		size -= 4
	}
	return minSize
}
