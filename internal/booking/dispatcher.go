package booking

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ds0903/cosmetology-bot-backend/internal/projects"
	"github.com/ds0903/cosmetology-bot-backend/internal/transcripts"
	"github.com/ds0903/cosmetology-bot-backend/pkg/logging"
)

var tracer = otel.Tracer("github.com/ds0903/cosmetology-bot-backend/internal/booking")

// Request is one booking action invocation for one chat turn.
type Request struct {
	ProjectID string
	ClientID  string
	MessageID string
	Intent    Intent
	Config    *projects.Config
}

// Process routes the intent to the matching handler and always returns a
// Result; panics and internal errors become error Results so the chat turn
// can continue.
func (s *Service) Process(ctx context.Context, req Request) (res Result) {
	ctx, span := tracer.Start(ctx, "booking.Process", trace.WithAttributes(
		attribute.String("project_id", req.ProjectID),
		attribute.Bool("double", req.Intent.Double),
	))
	defer span.End()

	log := s.logger.WithProject(req.ProjectID).WithMessageID(req.MessageID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("booking action panicked", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			res = Result{
				Success: false,
				Action:  ActionError,
				Reason:  ReasonError,
				Message: "something went wrong, please try again",
			}
		}
		s.metrics.ObserveAction(res.Action, outcomeLabel(res))
		span.SetAttributes(
			attribute.String("action", res.Action),
			attribute.Bool("success", res.Success),
		)
		s.exportTranscript(ctx, req, res, log)
	}()

	if req.Config == nil {
		req.Config = projects.DefaultConfig(req.ProjectID)
	}

	if req.Intent.Feedback != "" {
		if err := s.SaveFeedback(ctx, req.ProjectID, req.ClientID, req.Intent.Feedback); err != nil {
			log.Warn("feedback save failed", "error", err)
		}
	}

	res = s.route(ctx, req, log)
	return res
}

func (s *Service) route(ctx context.Context, req Request, log *logging.Logger) Result {
	intent := req.Intent
	switch {
	case intent.Change:
		res := s.dispatchPair(ctx, req, log, s.rescheduleSingle, s.rescheduleDouble)
		res.Action = ActionChange
		return res
	case intent.Reject:
		res := s.dispatchPair(ctx, req, log, s.cancelSingle, s.cancelDouble)
		res.Action = ActionReject
		return res
	case intent.Activate:
		res := s.dispatchPair(ctx, req, log, s.createSingle, s.createDouble)
		res.Action = ActionActivate
		return res
	default:
		return Result{Success: true, Action: ActionNone}
	}
}

type actionFunc func(ctx context.Context, req Request, log *logging.Logger) Result

func (s *Service) dispatchPair(ctx context.Context, req Request, log *logging.Logger, single, double actionFunc) Result {
	if req.Intent.Double || len(req.Intent.Specialists) >= 2 {
		return double(ctx, req, log)
	}
	return single(ctx, req, log)
}

// exportTranscript records the action outcome for offline analysis.
// Best-effort.
func (s *Service) exportTranscript(ctx context.Context, req Request, res Result, log *logging.Logger) {
	if s.transcripts == nil {
		return
	}
	rec := &transcripts.Record{
		ProjectID:  req.ProjectID,
		ClientID:   req.ClientID,
		MessageID:  req.MessageID,
		Action:     res.Action,
		Success:    res.Success,
		Reason:     res.Reason,
		Message:    res.Message,
		Specialist: req.Intent.Specialist,
		Date:       req.Intent.TargetDate,
		Time:       req.Intent.TargetTime,
		RawIntent:  req.Intent,
	}
	if err := s.transcripts.Export(ctx, rec); err != nil {
		log.Warn("transcript export failed", "error", err)
	}
}

func outcomeLabel(res Result) string {
	if res.Success {
		if res.Partial {
			return "partial"
		}
		return "success"
	}
	if res.Reason != "" {
		return res.Reason
	}
	return "failure"
}
