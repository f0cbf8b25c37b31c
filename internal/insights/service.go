package insights

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/howshous/analytics/internal/analytics"
	"github.com/howshous/analytics/internal/common/apperr"
	"github.com/howshous/analytics/internal/common/config"
	"github.com/howshous/analytics/internal/common/logger"
	"github.com/howshous/analytics/internal/common/metrics"
	"github.com/howshous/analytics/internal/listings"
)

// Service is the AI gateway: the only component allowed to call the hosted
// model. It sanitizes prompts, enforces the per-landlord daily quota, caches
// replies by (context, message) fingerprint, and degrades to the last cached
// reply instead of surfacing upstream failures.
type Service interface {
	BuildLandlordPayload(ctx context.Context, landlordID string, now time.Time) (*LandlordAnalyticsPayload, error)
	Chat(ctx context.Context, landlordID, message string, refresh bool) (*ChatResponse, error)
	GetCachedInsight(ctx context.Context, landlordID string) (*CachedInsightResponse, error)
}

type service struct {
	metrics  MetricsProvider
	listings listings.Reader
	store    InsightStore
	model    ModelClient // nil when no credential is configured
	cfg      config.AIConfig
	logger   *logger.Logger
}

func NewService(metricsProvider MetricsProvider, listingReader listings.Reader, store InsightStore, model ModelClient, cfg config.AIConfig, log *logger.Logger) Service {
	return &service{
		metrics:  metricsProvider,
		listings: listingReader,
		store:    store,
		model:    model,
		cfg:      cfg,
		logger:   log,
	}
}

// Chat runs one gateway request:
// sanitize → cache check → quota check → model call → validate → persist.
func (s *service) Chat(ctx context.Context, landlordID, message string, refresh bool) (*ChatResponse, error) {
	if message == "" {
		return nil, apperr.New(apperr.InvalidArgument, "message is required.")
	}

	sanitized := SanitizeMessage(message)
	if sanitized != message {
		s.logger.Warnf("Prompt sanitized for landlord %s", landlordID)
	}
	if sanitized == "" {
		return nil, apperr.New(apperr.InvalidArgument, "message is required.")
	}

	payload, err := s.BuildLandlordPayload(ctx, landlordID, time.Now())
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Insights temporarily unavailable.", err)
	}

	contextJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Insights temporarily unavailable.", err)
	}

	contextHash := hashString(string(contextJSON))
	messageHash := hashString(sanitized)
	userContent := fmt.Sprintf("User question: %s\n\nOptional context (landlord's metrics summary):\n%s", sanitized, contextJSON)

	if !refresh {
		if cached := s.freshCacheHit(ctx, landlordID, contextHash, messageHash); cached != nil {
			metrics.CacheHits.Inc()
			return &ChatResponse{Reply: cached.LastReply, Cached: true}, nil
		}
	}

	if s.model == nil {
		if resp := s.fallback(ctx, landlordID); resp != nil {
			return resp, nil
		}
		return nil, apperr.New(apperr.FailedPrecondition, "AI service is not configured.")
	}

	count, err := s.store.IncrementQuota(ctx, landlordID, analytics.DateKey(time.Now()))
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Insights temporarily unavailable.", err)
	}
	if count > int64(s.cfg.DailyQuota) {
		metrics.QuotaExceeded.Inc()
		if resp := s.fallback(ctx, landlordID); resp != nil {
			return resp, nil
		}
		return nil, apperr.New(apperr.ResourceExhausted, "Daily AI request limit reached. Try again tomorrow.")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	reply, err := s.model.Complete(callCtx, systemPrompt, userContent)
	cancel()
	if err != nil {
		metrics.ModelCalls.WithLabelValues("failure").Inc()
		s.logger.Errorf("Model call failed for landlord %s: %v", landlordID, err)
		if resp := s.fallback(ctx, landlordID); resp != nil {
			return resp, nil
		}
		return nil, apperr.Wrap(apperr.Internal, "Insights temporarily unavailable.", err)
	}
	metrics.ModelCalls.WithLabelValues("success").Inc()

	safeReply := reply
	if !IsValidInsightReply(reply) {
		s.logger.Warnf("Off-topic model reply for landlord %s, substituting fallback", landlordID)
		safeReply = fallbackReply
	}

	insight := &CachedInsight{
		LastReply:   safeReply,
		ContextHash: contextHash,
		MessageHash: messageHash,
		GeneratedAt: time.Now().UTC(),
	}
	if err := s.store.PutInsight(ctx, landlordID, insight); err != nil {
		// The reply is already in hand; losing the cache write only costs a
		// future model call.
		s.logger.Warnf("Failed to cache insight for landlord %s: %v", landlordID, err)
	}

	return &ChatResponse{Reply: safeReply, Cached: false}, nil
}

// GetCachedInsight returns the last cached reply, nulls when none exists.
func (s *service) GetCachedInsight(ctx context.Context, landlordID string) (*CachedInsightResponse, error) {
	insight, err := s.store.GetInsight(ctx, landlordID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Insights temporarily unavailable.", err)
	}
	if insight == nil || s.expired(insight) {
		return &CachedInsightResponse{}, nil
	}

	generatedAt := insight.GeneratedAt
	return &CachedInsightResponse{
		Reply:       &insight.LastReply,
		GeneratedAt: &generatedAt,
	}, nil
}

// freshCacheHit returns the cached insight only when both fingerprints match
// and the entry is younger than the cache TTL.
func (s *service) freshCacheHit(ctx context.Context, landlordID, contextHash, messageHash string) *CachedInsight {
	insight, err := s.store.GetInsight(ctx, landlordID)
	if err != nil {
		s.logger.Warnf("Insight cache read failed for landlord %s: %v", landlordID, err)
		return nil
	}
	if insight == nil || insight.LastReply == "" || s.expired(insight) {
		return nil
	}
	if insight.ContextHash != contextHash || insight.MessageHash != messageHash {
		return nil
	}
	return insight
}

// fallback serves the last cached reply regardless of fingerprint match, with
// a short lookup bound so degraded answers return quickly even when the
// primary path is unhealthy. Returns nil when no usable cache entry exists.
func (s *service) fallback(ctx context.Context, landlordID string) *ChatResponse {
	lookupCtx, cancel := context.WithTimeout(ctx, s.cfg.FallbackTimeout)
	defer cancel()

	insight, err := s.store.GetInsight(lookupCtx, landlordID)
	if err != nil || insight == nil || insight.LastReply == "" || s.expired(insight) {
		return nil
	}

	metrics.Fallbacks.Inc()
	return &ChatResponse{Reply: insight.LastReply, Cached: true, Fallback: true}
}

func (s *service) expired(insight *CachedInsight) bool {
	return time.Since(insight.GeneratedAt) > s.cfg.CacheTTL
}

func hashString(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
