package notification

import (
	"context"
	"io"
	"log"
	"slices"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/tphakala/motionsort/internal/errors"
	"github.com/tphakala/motionsort/internal/privacy"
)

// ShoutrrrProvider sends the notification text to one or more shoutrrr service URLs
// (telegram://, ntfy://, discord://, generic://, ...). Attachments are not forwarded.
type ShoutrrrProvider struct {
	enabled bool
	urls    []string
	timeout time.Duration
	sender  *router.ServiceRouter
}

// NewShoutrrrProvider creates the provider. ValidateConfig must succeed before Send.
func NewShoutrrrProvider(enabled bool, urls []string, timeout time.Duration) *ShoutrrrProvider {
	return &ShoutrrrProvider{
		enabled: enabled,
		urls:    slices.Clone(urls),
		timeout: timeout,
	}
}

func (s *ShoutrrrProvider) GetName() string { return "shoutrrr" }
func (s *ShoutrrrProvider) IsEnabled() bool { return s.enabled }

// ValidateConfig parses the URLs and builds the sender.
func (s *ShoutrrrProvider) ValidateConfig() error {
	if !s.enabled {
		return nil
	}
	if len(s.urls) == 0 {
		return errors.Newf("shoutrrr: at least one URL is required").
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sender, err := shoutrrr.CreateSender(s.urls...)
	if err != nil {
		// parse errors can echo the URL and its token
		return errors.New(privacy.WrapError(err)).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Context("provider", s.GetName()).
			Build()
	}
	if s.timeout > 0 {
		sender.Timeout = s.timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))
	s.sender = sender
	return nil
}

// Send delivers the message to every URL and returns the first failure.
func (s *ShoutrrrProvider) Send(ctx context.Context, n *Notification) error {
	if !s.enabled {
		return ErrProviderDisabled
	}
	if s.sender == nil {
		return errors.Newf("shoutrrr sender not initialized").
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := stypes.Params{}
	if n.Title != "" {
		params.SetTitle(n.Title)
	}

	for _, err := range s.sender.Send(n.Message, &params) {
		if err != nil {
			return errors.New(privacy.WrapError(err)).
				Component("notification").
				Category(errors.CategoryNotification).
				Context("provider", s.GetName()).
				Build()
		}
	}
	return nil
}
