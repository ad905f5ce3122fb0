package notification

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/spf13/afero"

	"github.com/tphakala/motionsort/internal/conf"
	"github.com/tphakala/motionsort/internal/errors"
	"github.com/tphakala/motionsort/internal/httpclient"
	"github.com/tphakala/motionsort/internal/logger"
)

const cooldownCleanupInterval = 10 * time.Minute

// Service delivers notifications to every enabled provider.
type Service struct {
	providers []Provider
	cooldown  time.Duration
	recent    *cache.Cache // location -> last notification ID
	observer  Observer
	log       logger.Logger
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithCooldown suppresses repeat notifications for one location within d. Zero disables.
func WithCooldown(d time.Duration) ServiceOption {
	return func(s *Service) { s.cooldown = d }
}

// WithObserver reports delivery outcomes to o.
func WithObserver(o Observer) ServiceOption {
	return func(s *Service) { s.observer = o }
}

// NewService validates every enabled provider and returns a service over them.
// Disabled providers are dropped.
func NewService(providers []Provider, opts ...ServiceOption) (*Service, error) {
	s := &Service{log: GetLogger()}
	for _, opt := range opts {
		opt(s)
	}

	for _, p := range providers {
		if p == nil || !p.IsEnabled() {
			continue
		}
		if err := p.ValidateConfig(); err != nil {
			return nil, err
		}
		s.providers = append(s.providers, p)
	}

	if s.cooldown > 0 {
		s.recent = cache.New(s.cooldown, cooldownCleanupInterval)
	}
	return s, nil
}

// NewServiceFromSettings builds the Pushover and shoutrrr providers from settings.
// Attachments are read from fs.
func NewServiceFromSettings(settings *conf.NotificationSettings, fs afero.Fs, opts ...ServiceOption) (*Service, error) {
	po := settings.Pushover
	pushover := NewPushoverProvider(PushoverConfig{
		Enabled:  po.Enabled,
		Token:    po.Token,
		User:     po.User,
		URL:      po.URL,
		Timeout:  po.Timeout,
		Priority: po.Priority,
		Sound:    po.Sound,
		Device:   po.Device,
	}, httpclient.New(&httpclient.Config{DefaultTimeout: po.Timeout}), fs)

	sh := settings.Shoutrrr
	fanout := NewShoutrrrProvider(sh.Enabled, sh.URLs, sh.Timeout)

	opts = append([]ServiceOption{WithCooldown(settings.Cooldown)}, opts...)
	return NewService([]Provider{pushover, fanout}, opts...)
}

// Enabled reports whether any provider will receive notifications.
func (s *Service) Enabled() bool {
	return len(s.providers) > 0
}

// Providers returns the names of the enabled providers.
func (s *Service) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for _, p := range s.providers {
		names = append(names, p.GetName())
	}
	return names
}

// Notify sends n to every provider. All providers are attempted; the returned error
// joins their failures. ErrProviderDisabled means there was nobody to send to and
// ErrSuppressed means the location is cooling down.
func (s *Service) Notify(ctx context.Context, n *Notification) error {
	if !s.Enabled() {
		return ErrProviderDisabled
	}
	log := s.log.WithContext(ctx).With(logger.String("notification_id", n.ID))

	key := strings.ToLower(n.Location)
	if s.recent != nil && key != "" {
		if prev, found := s.recent.Get(key); found {
			log.Debug("notification suppressed by cooldown",
				logger.String("location", n.Location),
				logger.Any("previous_id", prev))
			s.record("all", "suppressed")
			return ErrSuppressed
		}
	}

	var errs []error
	delivered := false
	for _, p := range s.providers {
		start := time.Now()
		if err := p.Send(ctx, n); err != nil {
			log.Warn("notification delivery failed",
				logger.String("provider", p.GetName()),
				logger.Error(err))
			s.record(p.GetName(), "failure")
			errs = append(errs, err)
			continue
		}
		delivered = true
		s.record(p.GetName(), "success")
		log.Info("notification sent",
			logger.String("provider", p.GetName()),
			logger.Duration("duration", time.Since(start)))
	}

	if delivered && s.recent != nil && key != "" {
		s.recent.SetDefault(key, n.ID)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func (s *Service) record(provider, status string) {
	if s.observer != nil {
		s.observer.RecordNotification(provider, status)
	}
}
