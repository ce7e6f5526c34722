// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/sdenike/fauxdash/internal/logging"
	"github.com/sdenike/fauxdash/internal/metrics"
	"github.com/sdenike/fauxdash/internal/models"
)

const (
	maxUserAgentLength = 500
	maxReferrerLength  = 2048
)

// Recorder publishes analytics events. A disabled Recorder accepts and
// discards every event.
type Recorder struct {
	publisher message.Publisher
	enabled   bool
	now       func() time.Time
}

// NewRecorder creates a recorder publishing to publisher.
func NewRecorder(publisher message.Publisher, enabled bool) *Recorder {
	return &Recorder{
		publisher: publisher,
		enabled:   enabled && publisher != nil,
		now:       time.Now,
	}
}

// Enabled reports whether events are being recorded.
func (r *Recorder) Enabled() bool {
	return r != nil && r.enabled
}

// RecordClick publishes a click on a bookmark or service.
func (r *Recorder) RecordClick(ctx context.Context, kind models.ItemKind, itemID int64, v Visitor) error {
	if !r.Enabled() {
		return nil
	}
	event := &ClickEvent{
		EventID:   uuid.NewString(),
		Kind:      kind,
		ItemID:    itemID,
		UserID:    v.UserID,
		IPAddress: v.IPAddress,
		UserAgent: truncate(v.UserAgent, maxUserAgentLength),
		Referrer:  truncate(v.Referrer, maxReferrerLength),
		Timestamp: r.now().UTC(),
	}
	return r.publish(ctx, TopicClick, event.EventID, event)
}

// RecordPageview publishes a dashboard visit.
func (r *Recorder) RecordPageview(ctx context.Context, path string, v Visitor) error {
	if !r.Enabled() {
		return nil
	}
	event := &PageviewEvent{
		EventID:   uuid.NewString(),
		Path:      path,
		UserID:    v.UserID,
		IPAddress: v.IPAddress,
		UserAgent: truncate(v.UserAgent, maxUserAgentLength),
		Referrer:  truncate(v.Referrer, maxReferrerLength),
		Timestamp: r.now().UTC(),
	}
	return r.publish(ctx, TopicPageview, event.EventID, event)
}

func (r *Recorder) publish(ctx context.Context, topic, id string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	msg := message.NewMessage(id, data)
	if requestID := logging.RequestIDFromContext(ctx); requestID != "" {
		msg.Metadata.Set("request_id", requestID)
	}

	if err := r.publisher.Publish(topic, msg); err != nil {
		metrics.AnalyticsEventsFailed.WithLabelValues(topic, "publish").Inc()
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
