package notify

import (
	"fmt"
	"io"
	"log"
	"slices"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/tphakala/gainguard/internal/errors"
	"github.com/tphakala/gainguard/internal/privacy"
)

// Sender delivers one alert to every configured service.
type Sender interface {
	Send(title, message string) error
}

// ShoutrrrSender sends alerts through a single shoutrrr router covering all
// configured service URLs.
type ShoutrrrSender struct {
	urls   []string
	router *router.ServiceRouter
}

// NewShoutrrrSender validates urls and builds the router. Errors never carry
// the raw URLs since they usually embed tokens.
func NewShoutrrrSender(urls []string, timeout time.Duration) (*ShoutrrrSender, error) {
	if len(urls) == 0 {
		return nil, errors.Newf("at least one notification URL is required").
			Component("notify").
			Category(errors.CategoryConfiguration).
			Build()
	}
	r, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, errors.New(privacy.WrapError(err)).
			Component("notify").
			Category(errors.CategoryConfiguration).
			Context("url_count", len(urls)).
			Build()
	}
	if timeout > 0 {
		r.Timeout = timeout
	}
	r.SetLogger(log.New(io.Discard, "", 0))
	return &ShoutrrrSender{urls: slices.Clone(urls), router: r}, nil
}

// Send implements Sender. The first service error is returned.
func (s *ShoutrrrSender) Send(title, message string) error {
	params := stypes.Params{}
	if title != "" {
		params.SetTitle(title)
	}
	for i, err := range s.router.Send(message, &params) {
		if err != nil {
			return fmt.Errorf("service %d of %d: %w", i+1, len(s.urls), privacy.WrapError(err))
		}
	}
	return nil
}
