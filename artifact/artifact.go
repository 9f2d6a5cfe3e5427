package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log"
	"net/http"
	"time"

	"github.com/fogleman/gg"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"golang.org/x/image/font/basicfont"

	_ "image/jpeg"
	_ "image/png"

	"tenx/config"
)

// Pipeline renders certificate artwork and pins the PNG to IPFS through
// Pinata. The returned content hash ends up as the minted asset's URL.
type Pipeline struct {
	http *resty.Client
}

func NewPipeline() *Pipeline {
	return &Pipeline{http: resty.New().SetTimeout(30 * time.Second)}
}

// RenderAndPublish composes the certificate image for a recipient and
// uploads it, returning the IPFS content hash.
func (p *Pipeline) RenderAndPublish(ctx context.Context, recipientName, title string, issued time.Time, weekNumber int) (string, error) {
	png, err := p.render(ctx, recipientName, title, issued)
	if err != nil {
		return "", err
	}
	return p.pin(ctx, recipientName, weekNumber, png)
}

// GatewayURL returns the public URL for a pinned content hash.
func GatewayURL(contentHash string) string {
	return fmt.Sprintf("%s/%s", config.AppConfig.PinataGateway, contentHash)
}

func (p *Pipeline) render(ctx context.Context, recipientName, title string, issued time.Time) ([]byte, error) {
	resp, err := p.http.R().SetContext(ctx).Get(config.AppConfig.CertTemplateURL)
	if err != nil {
		return nil, fmt.Errorf("download certificate template: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("download certificate template: status %d", resp.StatusCode())
	}

	background, _, err := image.Decode(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("decode certificate template: %w", err)
	}

	dc := gg.NewContextForImage(background)
	dc.SetFontFace(basicfont.Face7x13)
	dc.SetRGB255(59, 31, 24)

	dc.DrawString("This certifies that", 264, 430)
	dc.DrawString(recipientName, 460, 430)
	dc.DrawString("Has successfully completed the", 264, 485)
	dc.DrawString(title, 264, 540)
	dc.DrawString("Date of Issue:", 320, 595)
	dc.DrawString(issued.Format("January 2, 2006"), 470, 595)

	// The logo is cosmetic; a missing file must not block issuance.
	if logo, err := gg.LoadImage(config.AppConfig.AcademyLogoPath); err != nil {
		log.Printf("Warning: academy logo unavailable: %v", err)
	} else {
		dc.DrawImage(logo, 50, 50)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode certificate: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *Pipeline) pin(ctx context.Context, recipientName string, weekNumber int, png []byte) (string, error) {
	pinName := fmt.Sprintf("%s_week_%d_certificate_%s.png", recipientName, weekNumber, uuid.NewString())

	resp, err := p.http.R().
		SetContext(ctx).
		SetAuthToken(config.AppConfig.PinataJWT).
		SetFileReader("file", pinName, bytes.NewReader(png)).
		Post(config.AppConfig.PinataURL)
	if err != nil {
		return "", fmt.Errorf("upload certificate: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		log.Printf("Pinata upload failed: %s", resp.String())
		return "", fmt.Errorf("upload certificate: status %d", resp.StatusCode())
	}

	var out struct {
		IpfsHash string `json:"IpfsHash"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("parse upload response: %w", err)
	}
	if out.IpfsHash == "" {
		return "", fmt.Errorf("upload response missing content hash")
	}

	log.Printf("Pinned certificate %s as %s", pinName, out.IpfsHash)
	return out.IpfsHash, nil
}
