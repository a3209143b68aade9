package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-checker-api/internal/checker"
	"github.com/noah-isme/gema-checker-api/internal/dto"
	"github.com/noah-isme/gema-checker-api/internal/observability"
)

// RunTestsService evaluates learner submissions against static checks.
type RunTestsService interface {
	Run(ctx context.Context, payload dto.RunTestsRequest) (dto.RunTestsResponse, error)
}

type runTestsService struct {
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewRunTestsService constructs the static check service.
func NewRunTestsService(validate *validator.Validate, logger zerolog.Logger) RunTestsService {
	if validate == nil {
		validate = NewValidator()
	} else {
		registerValidations(validate)
	}

	return &runTestsService{
		validator: validate,
		logger:    logger.With().Str("component", "run_tests_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/gema-checker-api/internal/service/run_tests"),
	}
}

func (s *runTestsService) Run(ctx context.Context, payload dto.RunTestsRequest) (dto.RunTestsResponse, error) {
	_, span := s.tracer.Start(ctx, "run_tests.evaluate", trace.WithAttributes(
		attribute.String("exercise_id", payload.ExerciseID),
		attribute.String("lesson_id", valueOf(payload.LessonID)),
	))
	defer span.End()

	if err := ValidateRunRequest(s.validator, payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		observability.RunTests().WithLabelValues("rejected").Inc()
		return dto.RunTestsResponse{}, err
	}

	s.logger.Debug().
		Str("exercise_id", payload.ExerciseID).
		Str("lesson_id", valueOf(payload.LessonID)).
		Str("lesson_title", valueOf(payload.LessonTitle)).
		Int("code_length", len(payload.UserCode)).
		Msg("evaluating submission")

	report := checker.Evaluate(payload.UserCode, payload.CheckerSpec())

	for _, result := range report.Results {
		observability.CheckResults().WithLabelValues(string(result.Kind), outcome(result.Pass)).Inc()
	}
	observability.RunTests().WithLabelValues(outcome(report.Success)).Inc()

	span.SetAttributes(
		attribute.Bool("success", report.Success),
		attribute.Int("results", len(report.Results)),
	)

	return dto.NewRunTestsResponse(report), nil
}

func outcome(pass bool) string {
	if pass {
		return "passed"
	}
	return "failed"
}

func valueOf(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
