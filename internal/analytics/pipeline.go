// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/sdenike/fauxdash/internal/logging"
	"github.com/sdenike/fauxdash/internal/metrics"
	"github.com/sdenike/fauxdash/internal/models"
)

// ErrPipelineStopped is returned when publishing while the router is not
// running.
var ErrPipelineStopped = errors.New("analytics pipeline is not running")

var errMalformedEvent = errors.New("malformed analytics event")

// Store persists analytics events.
type Store interface {
	InsertClick(ctx context.Context, c *models.Click) (bool, error)
	InsertPageview(ctx context.Context, p *models.Pageview) error
	IncrementClickCount(ctx context.Context, kind models.ItemKind, id int64) error
}

// Locator resolves an IP address to a location.
type Locator interface {
	Resolve(ctx context.Context, ip string) (*models.Geolocation, error)
}

// Broadcaster pushes click notifications to live clients.
type Broadcaster interface {
	BroadcastClick(kind models.ItemKind, id int64, countryCode string, at time.Time)
}

// PipelineConfig holds router settings.
type PipelineConfig struct {
	// CloseTimeout is how long to wait for handlers to finish when closing.
	CloseTimeout time.Duration

	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64

	// BufferSize is the per-subscriber channel buffer.
	BufferSize int64

	// LookupTimeout bounds a single geolocation lookup. Zero disables
	// enrichment.
	LookupTimeout time.Duration
}

// DefaultPipelineConfig returns production defaults.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		CloseTimeout:         10 * time.Second,
		RetryMaxRetries:      3,
		RetryInitialInterval: 100 * time.Millisecond,
		RetryMaxInterval:     5 * time.Second,
		RetryMultiplier:      2.0,
		BufferSize:           1024,
		LookupTimeout:        3 * time.Second,
	}
}

// Pipeline consumes analytics events and writes them to the store. It also
// implements message.Publisher so a Recorder can publish into whichever
// Pub/Sub the current run owns.
type Pipeline struct {
	cfg         PipelineConfig
	store       Store
	locator     Locator
	broadcaster Broadcaster
	logger      watermill.LoggerAdapter

	mu     sync.RWMutex
	pubsub *gochannel.GoChannel
}

// NewPipeline creates a pipeline. locator and broadcaster may be nil.
func NewPipeline(cfg PipelineConfig, store Store, locator Locator, broadcaster Broadcaster) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		store:       store,
		locator:     locator,
		broadcaster: broadcaster,
		logger:      watermill.NewSlogLogger(logging.NewSlogLogger()),
	}
}

// Publish implements message.Publisher.
func (p *Pipeline) Publish(topic string, messages ...*message.Message) error {
	p.mu.RLock()
	pubsub := p.pubsub
	p.mu.RUnlock()

	if pubsub == nil {
		return ErrPipelineStopped
	}
	return pubsub.Publish(topic, messages...)
}

// Close implements message.Publisher. The Pub/Sub is owned by
// RunWithContext, so there is nothing to release here.
func (p *Pipeline) Close() error {
	return nil
}

// IsRunning reports whether events are currently being consumed.
func (p *Pipeline) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pubsub != nil
}

// RunWithContext consumes events until ctx is canceled. A Watermill router
// closes its subscribers on shutdown, so every run builds a fresh Pub/Sub
// and router. This lets the supervisor restart the pipeline after a failure.
func (p *Pipeline) RunWithContext(ctx context.Context) error {
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: p.cfg.BufferSize,
	}, p.logger)

	router, err := p.newRouter(pubsub)
	if err != nil {
		_ = pubsub.Close()
		return err
	}

	go func() {
		select {
		case <-router.Running():
			p.setPubSub(pubsub)
			logging.Info().Msg("Analytics pipeline running")
		case <-ctx.Done():
		}
	}()

	err = router.Run(ctx)
	p.setPubSub(nil)
	_ = pubsub.Close()

	if err != nil {
		return fmt.Errorf("analytics router: %w", err)
	}
	return ctx.Err()
}

func (p *Pipeline) setPubSub(pubsub *gochannel.GoChannel) {
	p.mu.Lock()
	p.pubsub = pubsub
	p.mu.Unlock()
}

func (p *Pipeline) newRouter(pubsub *gochannel.GoChannel) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: p.cfg.CloseTimeout,
	}, p.logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	// Middleware added first runs outermost: poison queue, then retry, then
	// panic recovery closest to the handler.
	poison, err := middleware.PoisonQueue(pubsub, TopicFailed)
	if err != nil {
		return nil, fmt.Errorf("create poison queue middleware: %w", err)
	}
	retry := middleware.Retry{
		MaxRetries:      p.cfg.RetryMaxRetries,
		InitialInterval: p.cfg.RetryInitialInterval,
		MaxInterval:     p.cfg.RetryMaxInterval,
		Multiplier:      p.cfg.RetryMultiplier,
		Logger:          p.logger,
		ShouldRetry: func(params middleware.RetryParams) bool {
			return !errors.Is(params.Err, errMalformedEvent)
		},
	}
	router.AddMiddleware(poison, retry.Middleware, middleware.Recoverer)

	router.AddConsumerHandler("analytics-clicks", TopicClick, pubsub, p.handleClick)
	router.AddConsumerHandler("analytics-pageviews", TopicPageview, pubsub, p.handlePageview)
	router.AddConsumerHandler("analytics-failed", TopicFailed, pubsub, p.handleFailed)

	return router, nil
}

// handleClick persists a click. Errors are retried by the router; a message
// that still fails goes to TopicFailed.
func (p *Pipeline) handleClick(msg *message.Message) error {
	var event ClickEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("%w: %v", errMalformedEvent, err)
	}
	if !event.Kind.Valid() || event.ItemID <= 0 || event.EventID == "" {
		return fmt.Errorf("%w: missing kind, item or event id", errMalformedEvent)
	}

	ctx := msg.Context()
	click := event.toModel()
	p.enrich(ctx, click.IPAddress, &click.Country, &click.CountryCode, &click.City)

	inserted, err := p.store.InsertClick(ctx, click)
	if err != nil {
		return err
	}
	if !inserted {
		// Redelivery of an event that was already stored.
		return nil
	}

	if err := p.store.IncrementClickCount(ctx, click.ItemKind, click.ItemID); err != nil {
		logging.Warn().Err(err).
			Str("kind", string(click.ItemKind)).
			Int64("item_id", click.ItemID).
			Msg("Failed to increment click count")
	}
	metrics.ClicksRecorded.WithLabelValues(string(click.ItemKind)).Inc()

	if p.broadcaster != nil {
		p.broadcaster.BroadcastClick(click.ItemKind, click.ItemID, click.CountryCode, click.CreatedAt)
	}
	return nil
}

func (p *Pipeline) handlePageview(msg *message.Message) error {
	var event PageviewEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("%w: %v", errMalformedEvent, err)
	}
	if event.EventID == "" || event.Path == "" {
		return fmt.Errorf("%w: missing path or event id", errMalformedEvent)
	}

	ctx := msg.Context()
	view := event.toModel()
	p.enrich(ctx, view.IPAddress, &view.Country, &view.CountryCode, &view.City)

	if err := p.store.InsertPageview(ctx, view); err != nil {
		return err
	}
	metrics.PageviewsRecorded.Inc()
	return nil
}

// handleFailed logs events that could not be processed and drops them.
func (p *Pipeline) handleFailed(msg *message.Message) error {
	topic := msg.Metadata.Get(middleware.PoisonedTopicKey)
	stage := "persist"
	reason := msg.Metadata.Get(middleware.ReasonForPoisonedKey)
	if strings.HasPrefix(reason, errMalformedEvent.Error()) {
		stage = "decode"
	}
	metrics.AnalyticsEventsFailed.WithLabelValues(topic, stage).Inc()
	logging.Warn().
		Str("topic", topic).
		Str("message_uuid", msg.UUID).
		Str("reason", reason).
		Msg("Dropped analytics event")
	return nil
}

// enrich fills location fields. Lookup failures are ignored; an event
// without a location is still worth keeping.
func (p *Pipeline) enrich(ctx context.Context, ip string, country, code, city *string) {
	if p.locator == nil || ip == "" || p.cfg.LookupTimeout <= 0 {
		return
	}
	lookupCtx, cancel := context.WithTimeout(ctx, p.cfg.LookupTimeout)
	defer cancel()

	geo, err := p.locator.Resolve(lookupCtx, ip)
	if err != nil || geo == nil {
		logging.Debug().Err(err).Str("ip", logging.MaskIP(ip)).Msg("Geolocation unavailable for event")
		return
	}
	*country = geo.Country
	*code = geo.CountryCode
	*city = geo.City
}
