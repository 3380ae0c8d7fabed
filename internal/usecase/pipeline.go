package usecase

import (
	"context"

	"SepsisWatch/internal/domain/models"
	domrepo "SepsisWatch/internal/domain/repository"
	domsvc "SepsisWatch/internal/domain/service"
	"SepsisWatch/internal/services/features"
	"SepsisWatch/internal/services/scoring"
	"SepsisWatch/internal/services/validation"
)

// Pipeline sequences validation, feature derivation and risk scoring for one
// event. It short-circuits on validation failure; the feature engine and the
// scorer never see invalid input. Stateless and safe for concurrent use.
type Pipeline struct {
	validator *validation.Validator
	engine    *features.Engine
	scorer    *scoring.Scorer
	model     domsvc.ModelScorer // optional; nil keeps scoring rule-based
	metrics   domrepo.Metrics
}

func NewPipeline(
	validator *validation.Validator,
	engine *features.Engine,
	scorer *scoring.Scorer,
	model domsvc.ModelScorer,
	metrics domrepo.Metrics,
) *Pipeline {
	return &Pipeline{
		validator: validator,
		engine:    engine,
		scorer:    scorer,
		model:     model,
		metrics:   metrics,
	}
}

// Run assesses one raw event. Exactly one of the two returns is non-empty.
func (p *Pipeline) Run(ctx context.Context, raw models.ObservationEvent) (*models.RiskResult, models.ValidationErrors) {
	validated, errs := p.validator.Validate(raw)
	if len(errs) > 0 {
		for _, e := range errs {
			p.metrics.RecordValidationFailure(e.Code)
		}
		return nil, errs
	}

	rec := p.engine.Derive(validated)

	if p.model != nil {
		score, err := p.model.Score(ctx, rec.PatientID, rec.Features, rec.Flags)
		if err == nil {
			return p.scorer.ResultFromScore(rec, score), nil
		}
		// Model unavailability degrades to the rule-based score; the event
		// is still assessed.
		p.metrics.RecordError("model_score")
	}

	return p.scorer.Score(rec), nil
}
