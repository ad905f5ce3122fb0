package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/tphakala/motionsort/internal/errors"
	"github.com/tphakala/motionsort/internal/httpclient"
	"github.com/tphakala/motionsort/internal/logger"
	"github.com/tphakala/motionsort/internal/privacy"
)

const (
	// PushoverURL is the Pushover messages endpoint.
	PushoverURL = "https://api.pushover.net/1/messages.json"

	// PushoverMaxAttachment is the largest attachment Pushover accepts.
	PushoverMaxAttachment = 5 * 1024 * 1024
)

// PushoverConfig configures a PushoverProvider.
type PushoverConfig struct {
	Enabled  bool
	Token    string
	User     string
	URL      string
	Timeout  time.Duration
	Priority int
	Sound    string
	Device   string
}

// PushoverProvider posts multipart messages with an optional image attachment.
type PushoverProvider struct {
	cfg    PushoverConfig
	client *httpclient.Client
	fs     afero.Fs
	log    logger.Logger
}

// NewPushoverProvider creates the provider. fs is where attachments are read from;
// a nil client gets one with cfg.Timeout.
func NewPushoverProvider(cfg PushoverConfig, client *httpclient.Client, fs afero.Fs) *PushoverProvider {
	if cfg.URL == "" {
		cfg.URL = PushoverURL
	}
	if client == nil {
		client = httpclient.New(&httpclient.Config{DefaultTimeout: cfg.Timeout})
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &PushoverProvider{cfg: cfg, client: client, fs: fs, log: GetLogger().Module("pushover")}
}

func (p *PushoverProvider) GetName() string { return "pushover" }
func (p *PushoverProvider) IsEnabled() bool { return p.cfg.Enabled }

// ValidateConfig checks credentials are present when enabled.
func (p *PushoverProvider) ValidateConfig() error {
	if !p.cfg.Enabled {
		return nil
	}
	var missing []string
	if strings.TrimSpace(p.cfg.Token) == "" {
		missing = append(missing, "token")
	}
	if strings.TrimSpace(p.cfg.User) == "" {
		missing = append(missing, "user")
	}
	if len(missing) > 0 {
		return errors.Newf("pushover: missing %s", strings.Join(missing, ", ")).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if p.cfg.Priority < -2 || p.cfg.Priority > 1 {
		return errors.Newf("pushover: priority %d out of range -2..1", p.cfg.Priority).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

type pushoverResponse struct {
	Status  int      `json:"status"`
	Request string   `json:"request"`
	Errors  []string `json:"errors"`
}

// Send posts n to Pushover. A missing or oversized attachment is dropped with a warning
// and the text is still sent.
func (p *PushoverProvider) Send(ctx context.Context, n *Notification) error {
	if !p.cfg.Enabled {
		return ErrProviderDisabled
	}

	fields := [][2]string{
		{"token", p.cfg.Token},
		{"user", p.cfg.User},
		{"message", n.Message},
	}
	if n.Title != "" {
		fields = append(fields, [2]string{"title", n.Title})
	}
	if p.cfg.Priority != 0 {
		fields = append(fields, [2]string{"priority", strconv.Itoa(p.cfg.Priority)})
	}
	if p.cfg.Sound != "" {
		fields = append(fields, [2]string{"sound", p.cfg.Sound})
	}
	if p.cfg.Device != "" {
		fields = append(fields, [2]string{"device", p.cfg.Device})
	}

	var files []httpclient.FormFile
	if n.Attachment != "" {
		f, closeFn, err := p.openAttachment(n.Attachment)
		if err != nil {
			p.log.Warn("sending without attachment",
				logger.String("attachment", n.Attachment),
				logger.Error(err))
		} else {
			defer closeFn()
			files = append(files, f)
		}
	}

	resp, err := p.client.PostMultipart(ctx, p.cfg.URL, fields, files...)
	if err != nil {
		return p.sendError(err)
	}

	var body pushoverResponse
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&body)
		_ = resp.Body.Close()
		if decodeErr != nil {
			return p.sendError(fmt.Errorf("decode response: %w", decodeErr))
		}
		if body.Status != 1 {
			return p.sendError(fmt.Errorf("pushover rejected message: %s", strings.Join(body.Errors, "; ")))
		}
		p.log.Debug("pushover message accepted",
			logger.String("notification_id", n.ID),
			logger.String("request", body.Request),
			logger.Bool("attachment", len(files) > 0))
		return nil
	}

	return p.sendError(httpclient.CheckResponse(resp))
}

func (p *PushoverProvider) openAttachment(path string) (httpclient.FormFile, func(), error) {
	info, err := p.fs.Stat(path)
	if err != nil {
		return httpclient.FormFile{}, nil, err
	}
	if info.Size() > PushoverMaxAttachment {
		return httpclient.FormFile{}, nil, fmt.Errorf("attachment is %d bytes, limit %d", info.Size(), PushoverMaxAttachment)
	}
	f, err := p.fs.Open(path)
	if err != nil {
		return httpclient.FormFile{}, nil, err
	}
	return httpclient.FormFile{
		Field:    "attachment",
		Filename: filepath.Base(path),
		Content:  f,
	}, func() { _ = f.Close() }, nil
}

func (p *PushoverProvider) sendError(err error) error {
	return errors.New(privacy.WrapError(err)).
		Component("notification").
		Category(errors.CategoryNotification).
		Context("provider", p.GetName()).
		Build()
}
