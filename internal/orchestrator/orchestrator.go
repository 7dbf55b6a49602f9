// Package orchestrator drives one question through the answer pipeline:
// classify, resolve, build, execute, summarize. Each stage either advances
// or short-circuits with a user-facing message.
//
// The error asymmetry is the contract of this package. Business conditions
// (missing entity, invalid input, ambiguous or unknown customer) produce a
// specific message at the stage that detects them. Infrastructure failures
// are logged in full and surfaced as exactly one generic apology; no SQL
// text, driver error, or stack detail ever reaches the user.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/varejolabs/salesbot/internal/catalog"
	"github.com/varejolabs/salesbot/internal/domain"
	"github.com/varejolabs/salesbot/internal/normalize"
	"github.com/varejolabs/salesbot/internal/observability"
	"github.com/varejolabs/salesbot/internal/resolver"
)

const (
	msgSystem = "Sorry, something went wrong on our side. Please try again in a moment."

	msgHelp = "I can help you with questions about customers, products, and orders. " +
		"For example: \"top 5 products this month\", \"credit limit for customer 42\", " +
		"or \"status of order 1001\"."

	msgDidntUnderstand = "Sorry, I didn't understand that. Could you rephrase your question?"

	msgNothingFound = "I didn't find anything for that."

	msgWhichCustomer = "Which customer do you mean? Please tell me the customer's name or code."
)

// periodClarifications are the follow-up questions for time-bounded intents
// that arrived without a usable period.
var periodClarifications = map[domain.Intent]string{
	domain.IntentRankedProducts:  "For which period do you want the product ranking? For example: this week, this month, or last month.",
	domain.IntentRankedCustomers: "For which period do you want the customer ranking? For example: this week, this month, or last month.",
	domain.IntentSalesHistory:    "For which period do you want the sales history? For example: this week, this month, or last month.",
	domain.IntentRecentCustomers: "Since when should I look for new customers? For example: this week, this month, or last month.",
}

// Classifier is the intent-extraction collaborator.
type Classifier interface {
	Classify(ctx context.Context, contextText, question string) (domain.IntentPayload, error)
}

// Summarizer is the answer-generation collaborator.
type Summarizer interface {
	Summarize(ctx context.Context, question string, rows []domain.Row) (string, error)
}

// CustomerResolver maps a customer reference to one customer.
type CustomerResolver interface {
	Resolve(ctx context.Context, e domain.Entities) (domain.ResolvedCustomer, error)
}

// SelectExecutor runs a catalog query and returns its rows.
type SelectExecutor interface {
	ExecuteSelect(ctx context.Context, q catalog.Query) ([]domain.Row, error)
}

// Orchestrator wires the collaborators into the pipeline.
type Orchestrator struct {
	classifier Classifier
	summarizer Summarizer
	customers  CustomerResolver
	exec       SelectExecutor
	registry   map[domain.Intent]catalog.Builder
	now        func() time.Time
	tracer     trace.Tracer
}

// Option adjusts an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithClock injects a clock for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New builds an Orchestrator and verifies up front that every query intent
// has a catalog builder. A gap is a programming error and fails construction
// so it can never surface as a runtime dispatch miss.
func New(cl Classifier, su Summarizer, cr CustomerResolver, exec SelectExecutor, opts ...Option) (*Orchestrator, error) {
	reg := catalog.Registry()
	for _, intent := range domain.QueryIntents() {
		if reg[intent] == nil {
			return nil, fmt.Errorf("orchestrator: intent %q has no query builder", intent)
		}
	}
	o := &Orchestrator{
		classifier: cl,
		summarizer: su,
		customers:  cr,
		exec:       exec,
		registry:   reg,
		now:        time.Now,
		tracer:     otel.Tracer("salesbot/orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Answer runs the full pipeline for one question and always returns a
// user-facing reply.
func (o *Orchestrator) Answer(ctx context.Context, contextText, question string) string {
	ctx, span := o.tracer.Start(ctx, "pipeline.answer")
	defer span.End()

	payload, msg := o.classify(ctx, contextText, question)
	if msg != "" {
		return msg
	}
	span.SetAttributes(attribute.String("intent", string(payload.Intent)))

	intent := payload.Intent
	switch intent {
	case domain.IntentNeedsClarification:
		observability.CountQuestion(string(intent), observability.OutcomeClarification)
		return payload.Clarification
	case domain.IntentUnknown:
		observability.CountQuestion(string(intent), observability.OutcomeUnknown)
		return msgHelp
	}

	entities := payload.Entities
	if intent.CustomerScoped() {
		resolved, msg := o.resolve(ctx, intent, entities)
		if msg != "" {
			return msg
		}
		entities.CustomerCode = &resolved.ID
	}

	query, msg := o.build(ctx, intent, entities)
	if msg != "" {
		return msg
	}

	rows, msg := o.execute(ctx, intent, query)
	if msg != "" {
		return msg
	}
	if len(rows) == 0 {
		observability.CountQuestion(string(intent), observability.OutcomeNotFound)
		return msgNothingFound
	}

	return o.summarize(ctx, intent, question, rows)
}

// classify calls the NLU collaborator and re-validates its output at the
// trust boundary. A non-empty second return value is a terminal reply.
func (o *Orchestrator) classify(ctx context.Context, contextText, question string) (domain.IntentPayload, string) {
	ctx, span := o.tracer.Start(ctx, "pipeline.classify")
	defer span.End()
	start := o.now()

	payload, err := o.classifier.Classify(ctx, contextText, question)
	observability.ObserveStage("classify", o.now().Sub(start))
	if err != nil {
		log.Error().Err(err).Msg("intent classification failed")
		observability.CountQuestion(string(domain.IntentUnknown), observability.OutcomeSystem)
		return domain.IntentPayload{}, msgDidntUnderstand
	}

	return o.revalidate(payload), ""
}

// revalidate coerces untrusted classifier output into a payload the rest of
// the pipeline can rely on.
func (o *Orchestrator) revalidate(p domain.IntentPayload) domain.IntentPayload {
	switch {
	case p.Intent == domain.IntentNeedsClarification:
		if p.Clarification == "" {
			// A clarification with nothing to ask is noise; treat as unknown.
			return domain.IntentPayload{Intent: domain.IntentUnknown}
		}
		// Entities attached to a clarification are untrusted leftovers.
		return domain.IntentPayload{
			Intent:        domain.IntentNeedsClarification,
			Clarification: p.Clarification,
		}
	case !p.Intent.Known():
		return domain.IntentPayload{Intent: domain.IntentUnknown}
	}

	// Time-bounded intents must carry a resolvable period. The classifier
	// sometimes emits them without one; turn that into a follow-up question
	// instead of letting the catalog reject it downstream.
	if p.Intent.NeedsPeriod() {
		if _, err := normalize.ResolvePeriod(p.Entities.Period, o.now()); err != nil {
			return domain.IntentPayload{
				Intent:        domain.IntentNeedsClarification,
				Clarification: periodClarifications[p.Intent],
			}
		}
	}
	return p
}

func (o *Orchestrator) resolve(ctx context.Context, intent domain.Intent, e domain.Entities) (domain.ResolvedCustomer, string) {
	ctx, span := o.tracer.Start(ctx, "pipeline.resolve")
	defer span.End()
	start := o.now()

	resolved, err := o.customers.Resolve(ctx, e)
	observability.ObserveStage("resolve", o.now().Sub(start))
	if err == nil {
		return resolved, ""
	}

	var amb *resolver.AmbiguousError
	switch {
	case errors.As(err, &amb):
		observability.CountQuestion(string(intent), observability.OutcomeAmbiguous)
		return domain.ResolvedCustomer{}, amb.Prompt()
	case errors.Is(err, resolver.ErrNotFound):
		observability.CountQuestion(string(intent), observability.OutcomeNotFound)
		return domain.ResolvedCustomer{}, fmt.Sprintf("I couldn't find a customer named %q. Could you check the name or give me the customer code?", e.CustomerName)
	case errors.Is(err, resolver.ErrMissingIdentifier):
		observability.CountQuestion(string(intent), observability.OutcomeClarification)
		return domain.ResolvedCustomer{}, msgWhichCustomer
	default:
		log.Error().Err(err).Str("intent", string(intent)).Msg("customer resolution failed")
		observability.CountQuestion(string(intent), observability.OutcomeSystem)
		return domain.ResolvedCustomer{}, msgSystem
	}
}

func (o *Orchestrator) build(ctx context.Context, intent domain.Intent, e domain.Entities) (catalog.Query, string) {
	_, span := o.tracer.Start(ctx, "pipeline.build")
	defer span.End()

	query, err := o.registry[intent](e, o.now())
	if err == nil {
		return query, ""
	}

	var ve *catalog.ValidationError
	if errors.As(err, &ve) {
		observability.CountQuestion(string(intent), observability.OutcomeValidation)
		return catalog.Query{}, ve.Error()
	}
	log.Error().Err(err).Str("intent", string(intent)).Msg("query build failed")
	observability.CountQuestion(string(intent), observability.OutcomeSystem)
	return catalog.Query{}, msgSystem
}

func (o *Orchestrator) execute(ctx context.Context, intent domain.Intent, q catalog.Query) ([]domain.Row, string) {
	ctx, span := o.tracer.Start(ctx, "pipeline.execute")
	defer span.End()
	start := o.now()

	rows, err := o.exec.ExecuteSelect(ctx, q)
	observability.ObserveStage("execute", o.now().Sub(start))
	if err != nil {
		log.Error().Err(err).Str("intent", string(intent)).Msg("query execution failed")
		observability.CountQuestion(string(intent), observability.OutcomeSystem)
		return nil, msgSystem
	}
	return rows, ""
}

func (o *Orchestrator) summarize(ctx context.Context, intent domain.Intent, question string, rows []domain.Row) string {
	ctx, span := o.tracer.Start(ctx, "pipeline.summarize")
	defer span.End()
	start := o.now()

	answer, err := o.summarizer.Summarize(ctx, question, rows)
	observability.ObserveStage("summarize", o.now().Sub(start))
	if err != nil {
		// The data is already in hand; a flat rendering beats an apology.
		log.Warn().Err(err).Str("intent", string(intent)).Msg("summarization failed, using fallback rendering")
		observability.CountQuestion(string(intent), observability.OutcomeFallback)
		return renderFallback(rows)
	}
	observability.CountQuestion(string(intent), observability.OutcomeAnswered)
	return answer
}
