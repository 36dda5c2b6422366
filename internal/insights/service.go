// Package insights is the feature façade: tips, recommendations, reminders
// and status per pet, generated upstream and memoized in the response cache.
//
// Serving policy, uniform across all four features: a fresh cache entry is
// returned as-is; a stale entry is served immediately while a fire-and-forget
// background refresh runs; a true miss refreshes synchronously and surfaces
// the typed error when the upstream fails and nothing cached exists.
package insights

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"tailwise-insights/internal/cache"
	"tailwise-insights/internal/genai"
	"tailwise-insights/internal/petdir"
	"tailwise-insights/pkg/logging/logging"
)

// Service answers the four insight operations for the HTTP layer.
type Service struct {
	pets  petdir.Directory
	gen   genai.Client
	cache *cache.ResponseCache

	logger         *zap.Logger
	refreshTimeout time.Duration
	now            func() time.Time
}

func NewService(pets petdir.Directory, gen genai.Client, c *cache.ResponseCache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		pets:           pets,
		gen:            gen,
		cache:          c,
		logger:         logger.Named("insights"),
		refreshTimeout: 60 * time.Second,
		now:            time.Now,
	}
}

func (s *Service) GetTips(ctx context.Context, petID string) (*TipsResult, error) {
	return fetch(ctx, s, FeatureTips, petID,
		func(p *petdir.PetProfile) *genai.GenerateRequest {
			return &genai.GenerateRequest{
				Prompt: tipsPrompt(p),
				Options: genai.GenerateOptions{
					Temperature:     0.7,
					MaxOutputTokens: 120,
				},
			}
		},
		func(text string) *TipsResult {
			return &TipsResult{PetID: petID, Tip: parseTip(text)}
		})
}

func (s *Service) GetRecommendations(ctx context.Context, petID string) (*RecommendationsResult, error) {
	return fetch(ctx, s, FeatureRecommendations, petID,
		func(p *petdir.PetProfile) *genai.GenerateRequest {
			return &genai.GenerateRequest{
				Prompt: recommendationsPrompt(p),
				Options: genai.GenerateOptions{
					Temperature:     0.6,
					MaxOutputTokens: 256,
				},
			}
		},
		func(text string) *RecommendationsResult {
			return &RecommendationsResult{PetID: petID, Items: parseRecommendations(text)}
		})
}

func (s *Service) GetReminders(ctx context.Context, petID string) (*RemindersResult, error) {
	return fetch(ctx, s, FeatureReminders, petID,
		func(p *petdir.PetProfile) *genai.GenerateRequest {
			return &genai.GenerateRequest{
				Prompt: remindersPrompt(p),
				Options: genai.GenerateOptions{
					Temperature:     0.5,
					MaxOutputTokens: 200,
				},
			}
		},
		func(text string) *RemindersResult {
			return &RemindersResult{PetID: petID, Items: parseReminders(text, s.now())}
		})
}

func (s *Service) GetStatus(ctx context.Context, petID string) (*StatusResult, error) {
	return fetch(ctx, s, FeatureStatus, petID,
		func(p *petdir.PetProfile) *genai.GenerateRequest {
			return &genai.GenerateRequest{
				Prompt: statusPrompt(p),
				Options: genai.GenerateOptions{
					Temperature:     0.4,
					MaxOutputTokens: 100,
				},
			}
		},
		func(text string) *StatusResult {
			status, pills, summary := parseStatus(text)
			return &StatusResult{PetID: petID, Status: status, Pills: pills, Summary: summary}
		})
}

// fetch implements the shared cache-probe / refresh / fallback flow.
func fetch[T any](
	ctx context.Context,
	s *Service,
	feature Feature,
	petID string,
	build func(*petdir.PetProfile) *genai.GenerateRequest,
	parse func(text string) T,
) (T, error) {
	var zero T
	key := cache.Key{Feature: string(feature), SubjectID: petID}
	logger := logging.L(ctx)

	data, state, err := s.cache.Lookup(ctx, key)
	if err != nil {
		// Cache is best-effort; log and treat as a miss.
		logger.Warn("cache lookup failed",
			zap.String("feature", string(feature)),
			zap.String("pet_id", petID),
			zap.Error(err),
		)
		state = cache.StateMiss
	}

	if state != cache.StateMiss {
		var out T
		if err := json.Unmarshal(data, &out); err != nil {
			logger.Warn("cached entry unreadable, refreshing",
				zap.String("feature", string(feature)),
				zap.String("pet_id", petID),
				zap.Error(err),
			)
		} else {
			if state == cache.StateStale {
				// Serve degraded data now; refresh without the caller.
				refreshInBackground(s, feature, petID, build, parse)
			}
			return out, nil
		}
	}

	out, err := refresh(ctx, s, key, build, parse)
	if err != nil {
		// No cached value of any age exists here, so the typed error
		// reaches the caller.
		return zero, err
	}
	return out, nil
}

// refresh loads the pet, runs the generation call through the queue, parses
// the response, and stores the result.
func refresh[T any](
	ctx context.Context,
	s *Service,
	key cache.Key,
	build func(*petdir.PetProfile) *genai.GenerateRequest,
	parse func(text string) T,
) (T, error) {
	var zero T

	p, err := s.pets.Pet(ctx, key.SubjectID)
	if err != nil {
		return zero, err
	}

	text, err := s.gen.Generate(ctx, build(p))
	if err != nil {
		return zero, err
	}

	out := parse(text)

	if raw, err := json.Marshal(out); err != nil {
		logging.L(ctx).Warn("marshal insight for cache failed",
			zap.String("feature", key.Feature),
			zap.String("pet_id", key.SubjectID),
			zap.Error(err),
		)
	} else if err := s.cache.Put(ctx, key, raw); err != nil {
		logging.L(ctx).Warn("cache write failed",
			zap.String("feature", key.Feature),
			zap.String("pet_id", key.SubjectID),
			zap.Error(err),
		)
	}

	return out, nil
}

// refreshInBackground re-generates a stale entry without blocking the
// caller. Nothing awaits it; failures are logged and absorbed, and the stale
// entry simply remains until a later refresh succeeds.
func refreshInBackground[T any](
	s *Service,
	feature Feature,
	petID string,
	build func(*petdir.PetProfile) *genai.GenerateRequest,
	parse func(text string) T,
) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.refreshTimeout)
		defer cancel()
		ctx = logging.WithLogger(ctx, s.logger)

		key := cache.Key{Feature: string(feature), SubjectID: petID}
		if _, err := refresh(ctx, s, key, build, parse); err != nil {
			s.logger.Warn("background refresh failed",
				zap.String("feature", string(feature)),
				zap.String("pet_id", petID),
				zap.Error(err),
			)
		}
	}()
}
