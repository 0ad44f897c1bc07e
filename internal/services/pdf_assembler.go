package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/yungbote/storyforge-backend/internal/logger"
	"github.com/yungbote/storyforge-backend/internal/types"
)

const (
	pageWidthPt  = 612.0 // Letter portrait
	marginPt     = 54.0
	imageWidthPt = 396.0 // 5.5in, matches the editor preview
)

// ImageFetcher retrieves scene illustrations by URL.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type httpImageFetcher struct {
	client *http.Client
}

func NewHTTPImageFetcher() ImageFetcher {
	return &httpImageFetcher{client: &http.Client{Timeout: 30 * time.Second}}
}

func (f *httpImageFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 32<<20))
}

// PDFAssembler renders a session snapshot into the final storybook PDF:
// cover page, one page per scene with heading, body text and centered
// illustration, and a page-number footer. Rendering never mutates the
// session, so repeated previews of the same snapshot yield the same bytes.
type PDFAssembler interface {
	Assemble(ctx context.Context, session *types.StorybookSession) ([]byte, error)
}

type pdfAssembler struct {
	log         *logger.Logger
	fetcher     ImageFetcher
	placeholder *PlaceholderRenderer
}

func NewPDFAssembler(log *logger.Logger, fetcher ImageFetcher, placeholder *PlaceholderRenderer) PDFAssembler {
	return &pdfAssembler{
		log:         log.With("service", "PDFAssembler"),
		fetcher:     fetcher,
		placeholder: placeholder,
	}
}

func (a *pdfAssembler) Assemble(ctx context.Context, session *types.StorybookSession) ([]byte, error) {
	for i, scene := range session.Scenes {
		if strings.TrimSpace(scene.Text) == "" {
			return nil, fmt.Errorf("%w: scene %d has no text", types.ErrRenderFailed, i)
		}
	}

	fontName := session.Styles.FontName
	fontSize := float64(session.Styles.FontSize)

	pdf := gofpdf.New("P", "pt", "Letter", "")
	pdf.SetTitle(session.Title, true)
	pdf.SetAuthor(session.Author, true)
	// pinned so previews of an unchanged snapshot are byte-identical
	pdf.SetCreationDate(session.CreatedAt)
	pdf.SetMargins(marginPt, 72, marginPt)
	pdf.SetAutoPageBreak(true, marginPt)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-36)
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 12, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	// Cover
	pdf.AddPage()
	pdf.SetY(216)
	pdf.SetFont(fontName, "B", 28)
	pdf.SetTextColor(31, 78, 121)
	pdf.MultiCell(0, 34, tr(session.Title), "", "C", false)
	pdf.Ln(12)
	pdf.SetFont(fontName, "", 16)
	pdf.SetTextColor(128, 128, 128)
	pdf.CellFormat(0, 20, tr("by "+session.Author), "", 1, "C", false, 0, "")

	for i, scene := range session.Scenes {
		pdf.AddPage()

		pdf.SetFont(fontName, "B", fontSize+4)
		pdf.SetTextColor(0, 0, 139)
		pdf.CellFormat(0, fontSize+8, fmt.Sprintf("Scene %d", i+1), "", 1, "L", false, 0, "")
		pdf.Ln(6)

		pdf.SetFont(fontName, "", fontSize)
		pdf.SetTextColor(0, 0, 0)
		pdf.MultiCell(0, fontSize*1.5, tr(scene.Text), "", "L", false)
		pdf.Ln(10)

		img, imgType := a.sceneImage(ctx, i, scene)
		if img == nil {
			pdf.SetFont(fontName, "I", fontSize-2)
			pdf.SetTextColor(128, 128, 128)
			pdf.CellFormat(0, fontSize, "[Image missing]", "", 1, "L", false, 0, "")
			continue
		}

		name := fmt.Sprintf("scene_%d", i+1)
		opts := gofpdf.ImageOptions{ImageType: imgType, ReadDpi: true}
		info := pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img))
		if pdf.Err() {
			// a corrupt image should not sink the whole book
			a.log.Warn("could not embed scene image", "scene", i+1, "error", pdf.Error())
			pdf.ClearError()
			continue
		}

		w := imageWidthPt
		h := w * info.Height() / info.Width()
		x := (pageWidthPt - w) / 2
		pdf.ImageOptions(name, x, 0, w, h, true, opts, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrRenderFailed, err)
	}
	a.log.Info("Storybook PDF assembled", "session_id", session.SessionID, "scenes", len(session.Scenes), "bytes", buf.Len())
	return buf.Bytes(), nil
}

// sceneImage returns the illustration bytes for a scene, falling back to
// placeholder art when the scene has no URL or the fetch fails.
func (a *pdfAssembler) sceneImage(ctx context.Context, index int, scene types.Scene) ([]byte, string) {
	if scene.ImageURL != nil && strings.TrimSpace(*scene.ImageURL) != "" {
		raw, err := a.fetcher.Fetch(ctx, *scene.ImageURL)
		if err == nil {
			return raw, sniffImageType(raw)
		}
		a.log.Warn("could not fetch scene image, using placeholder", "scene", index+1, "error", err)
	}
	if a.placeholder == nil {
		return nil, ""
	}
	raw, err := a.placeholder.Render(index + 1)
	if err != nil {
		a.log.Warn("placeholder render failed", "scene", index+1, "error", err)
		return nil, ""
	}
	return raw, "PNG"
}

func sniffImageType(raw []byte) string {
	switch http.DetectContentType(raw) {
	case "image/jpeg":
		return "JPG"
	case "image/gif":
		return "GIF"
	default:
		return "PNG"
	}
}
