package metadata

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/ytlounge/internal/domain/snapshot"
	"github.com/osa030/ytlounge/internal/domain/video"
	"github.com/osa030/ytlounge/internal/infra/metrics"
)

// slot is the single cached lookup result.
type slot struct {
	id       string
	record   *video.Record
	failed   bool
	failedAt time.Time
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithRetryFailedAfter allows a failed id to be looked up again once d has
// elapsed. Zero keeps a failed id suppressed until a different id is seen.
func WithRetryFailedAfter(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.retryFailedAfter = d }
}

// WithNow sets the time source used to age failures.
func WithNow(now func() time.Time) ResolverOption {
	return func(r *Resolver) { r.now = now }
}

// Resolver keeps the metadata of the last media id seen.
// Resolve calls must be serialized by the caller.
type Resolver struct {
	mu      sync.RWMutex
	service Service
	slot    slot

	retryFailedAfter time.Duration
	now              func() time.Time
}

// NewResolver creates a resolver without a service. Until a service is
// attached every Resolve clears the cached record.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetService attaches the metadata service.
func (r *Resolver) SetService(svc Service) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.service = svc
}

// HasService reports whether a service is attached.
func (r *Resolver) HasService() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.service != nil
}

// Record returns a copy of the cached record, or nil if none.
func (r *Resolver) Record() *video.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.slot.record == nil {
		return nil
	}
	rec := *r.slot.record
	return &rec
}

// Resolve updates the cached record for the media in snap. A lookup is
// issued only when the media id differs from the cached one. Lookup errors
// are logged and leave the record empty.
func (r *Resolver) Resolve(ctx context.Context, snap *snapshot.Snapshot) {
	r.mu.Lock()
	svc := r.service
	if svc == nil || !snap.HasMedia() {
		r.slot = slot{}
		r.mu.Unlock()
		return
	}

	id := snap.MediaID
	if r.slot.id == id && !r.retryDue() {
		r.mu.Unlock()
		return
	}
	r.slot = slot{id: id}
	r.mu.Unlock()

	rec, err := svc.Lookup(ctx, id)
	if err == nil && rec == nil {
		err = errors.Wrapf(ErrNotFound, "id=%s", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slot.id != id {
		return
	}
	if err != nil {
		if ctx.Err() != nil {
			// Interrupted lookups are retried on the next notification.
			r.slot = slot{}
			return
		}
		metrics.MetadataLookupsTotal.WithLabelValues("error").Inc()
		if IsInvalidAPIKey(err) {
			zlog.Error().Err(err).Msgf("metadata: api key rejected: id=%s", id)
		} else {
			zlog.Warn().Err(err).Msgf("metadata: lookup failed: id=%s", id)
		}
		r.slot.failed = true
		r.slot.failedAt = r.now()
		return
	}

	metrics.MetadataLookupsTotal.WithLabelValues("success").Inc()
	zlog.Debug().Msgf("metadata: resolved: id=%s title=%q", id, rec.Title)
	r.slot.record = rec
}

// retryDue reports whether the cached failure may be retried. Caller holds mu.
func (r *Resolver) retryDue() bool {
	if !r.slot.failed || r.retryFailedAfter <= 0 {
		return false
	}
	return r.now().Sub(r.slot.failedAt) >= r.retryFailedAfter
}

// IsInvalidAPIKey reports whether err means the API key was rejected.
func IsInvalidAPIKey(err error) bool {
	return errors.Is(err, ErrInvalidAPIKey)
}
