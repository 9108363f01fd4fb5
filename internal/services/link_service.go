package services

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/soaringjerry/teacheval/internal/gate"
	"github.com/soaringjerry/teacheval/internal/logging"
	"github.com/soaringjerry/teacheval/internal/models"
)

// LinkConfig holds the public addresses links are built from.
type LinkConfig struct {
	BaseURL   string
	QRBaseURL string
	QRSize    int
}

// FormLinkRequest asks for a distributable form link.
type FormLinkRequest struct {
	Info         models.TeacherInfo `json:"teacherInfo"`
	ValidMinutes int                `json:"validMinutes" validate:"min=0,max=525600"`
	Shorten      bool               `json:"shorten"`
}

// FormLink is a generated form link with its QR image address.
type FormLink struct {
	URL       string `json:"url"`
	ShortURL  string `json:"shortUrl,omitempty"`
	QRCodeURL string `json:"qrCodeUrl"`
	ExpiresAt int64  `json:"expiresAt,omitempty"`
}

// PublicLinkStatus is one entry of the public results allow-list.
type PublicLinkStatus struct {
	Teacher string `json:"teacher"`
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
}

// LinkService generates form and public links and manages the allow-list.
type LinkService struct {
	flags     LinkFlagStore
	shortener URLShortener
	cfg       LinkConfig
	log       logging.Logger
	now       func() time.Time
}

func NewLinkService(flags LinkFlagStore, shortener URLShortener, cfg LinkConfig, log logging.Logger) *LinkService {
	if cfg.QRSize <= 0 {
		cfg.QRSize = 200
	}
	if log == nil {
		log = logging.Discard()
	}
	return &LinkService{
		flags:     flags,
		shortener: shortener,
		cfg:       cfg,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// QRCodeURL is the image address of a QR code encoding data.
func QRCodeURL(base string, size int, data string) string {
	q := url.Values{}
	q.Set("size", fmt.Sprintf("%dx%d", size, size))
	q.Set("data", data)
	return base + "?" + q.Encode()
}

func (s *LinkService) build(q url.Values) string {
	return strings.TrimRight(s.cfg.BaseURL, "?") + "?" + q.Encode()
}

// FormLink encodes the form context into a link. A positive validity adds
// exp = now + validity in epoch milliseconds.
func (s *LinkService) FormLink(ctx context.Context, req FormLinkRequest) (*FormLink, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	req.Info.Name = models.NormalizeName(req.Info.Name)
	if req.Info.Name == "" {
		return nil, NewInvalidError("teacher name required")
	}
	var exp int64
	if req.ValidMinutes > 0 {
		exp = s.now().Add(time.Duration(req.ValidMinutes) * time.Minute).UnixMilli()
	}
	link := &FormLink{URL: s.build(gate.FormParams(req.Info, exp)), ExpiresAt: exp}
	if req.Shorten {
		short, err := s.shorten(ctx, link.URL)
		if err != nil {
			return nil, err
		}
		link.ShortURL = short
	}
	target := link.URL
	if link.ShortURL != "" {
		target = link.ShortURL
	}
	link.QRCodeURL = QRCodeURL(s.cfg.QRBaseURL, s.cfg.QRSize, target)
	return link, nil
}

func (s *LinkService) shorten(ctx context.Context, long string) (string, error) {
	if s.shortener == nil {
		return "", NewInvalidError("link shortening is not configured")
	}
	short, err := s.shortener.Shorten(ctx, long)
	if err != nil {
		s.log.Warn("shorten link failed", err)
		return "", NewBadGatewayError("could not shorten link", err)
	}
	return short, nil
}

// PublicLink is the read-only results link for teacher. It only works while
// the teacher's allow-list flag is on.
func (s *LinkService) PublicLink(teacher string) string {
	return s.build(gate.PublicParams(teacher))
}

// SetPublic toggles the allow-list flag for teacher.
func (s *LinkService) SetPublic(ctx context.Context, teacher string, enabled bool) (*PublicLinkStatus, error) {
	teacher = models.NormalizeName(teacher)
	if teacher == "" {
		return nil, NewInvalidError("teacher required")
	}
	if err := s.flags.SetPublicLink(ctx, teacher, enabled); err != nil {
		return nil, fmt.Errorf("set public link: %w", err)
	}
	s.log.Info("public link updated", logging.Fields{"teacher": teacher, "enabled": enabled})
	return &PublicLinkStatus{Teacher: teacher, Enabled: enabled, URL: s.PublicLink(teacher)}, nil
}

// ListPublic returns every teacher with a stored flag, sorted by name.
func (s *LinkService) ListPublic(ctx context.Context) ([]PublicLinkStatus, error) {
	flags, err := s.flags.ListPublicLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list public links: %w", err)
	}
	out := make([]PublicLinkStatus, 0, len(flags))
	for teacher, enabled := range flags {
		out = append(out, PublicLinkStatus{Teacher: teacher, Enabled: enabled, URL: s.PublicLink(teacher)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Teacher < out[j].Teacher })
	return out, nil
}
