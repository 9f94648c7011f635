// Package orchestrator drives the rule lifecycle workflows: it routes
// each user turn, runs the generate/validate loop with its bounded
// retry budget, holds generated SQL behind the approval gate, and is
// the only code path that mutates the rule store.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/c360studio/dqagent/intent"
	"github.com/c360studio/dqagent/llm"
	"github.com/c360studio/dqagent/nl2sql"
	"github.com/c360studio/dqagent/rule"
	"github.com/c360studio/dqagent/session"
	"github.com/c360studio/dqagent/warehouse"
)

// ErrUnknownSession is returned for turns addressed to a session that
// does not exist or has ended.
var ErrUnknownSession = errors.New("unknown session")

// Config holds workflow settings.
type Config struct {
	// MaxGenerateAttempts bounds the generate/validate rounds in one
	// workflow before it is abandoned with a failure report.
	MaxGenerateAttempts int
}

// DefaultConfig returns workflow defaults.
func DefaultConfig() Config {
	return Config{MaxGenerateAttempts: 3}
}

// Reply is the orchestrator's answer to one user turn.
type Reply struct {
	// Text is the natural-language response.
	Text string `json:"text"`

	// PendingApproval is set while generated SQL or a proposed update
	// is awaiting the user's approve/revise/abandon decision.
	PendingApproval bool `json:"pending_approval"`
}

// Orchestrator coordinates the router, generator, validator, executor,
// and rule store. One turn is processed to completion before the next;
// the collaborators are awaited sequentially because each step depends
// on the previous result.
type Orchestrator struct {
	router    intent.Router
	generator nl2sql.Generator
	validator warehouse.Validator
	executor  warehouse.Executor
	rules     rule.Store
	sessions  *session.Manager
	cfg       Config
	logger    *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New creates an orchestrator.
func New(
	router intent.Router,
	generator nl2sql.Generator,
	validator warehouse.Validator,
	executor warehouse.Executor,
	rules rule.Store,
	sessions *session.Manager,
	cfg Config,
	opts ...Option,
) *Orchestrator {
	if cfg.MaxGenerateAttempts <= 0 {
		cfg.MaxGenerateAttempts = DefaultConfig().MaxGenerateAttempts
	}
	o := &Orchestrator{
		router:    router,
		generator: generator,
		validator: validator,
		executor:  executor,
		rules:     rules,
		sessions:  sessions,
		cfg:       cfg,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// HandleTurn processes one user turn for a session and returns the
// response. All workflow errors are resolved here into user-facing
// text; the returned error is reserved for unknown sessions.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID, turn string) (Reply, error) {
	sess := o.sessions.Get(sessionID)
	if sess == nil {
		return Reply{}, fmt.Errorf("session %q: %w", sessionID, ErrUnknownSession)
	}

	// A session processes one turn to completion before the next;
	// concurrent requests for the same session queue here. Sessions
	// stay independent of each other.
	sess.Lock()
	defer sess.Unlock()

	turn = strings.TrimSpace(turn)
	if turn == "" {
		return Reply{Text: "I didn't catch that. What would you like to do?"}, nil
	}

	// An active draft owns the turn: it is either an approval decision,
	// a replacement name after a conflict, or the missing description
	// of an update.
	if sess.Draft != nil {
		switch {
		case sess.Draft.AwaitingName:
			return o.handleNameTurn(ctx, sess, turn), nil
		case sess.Draft.AwaitingDescription:
			return o.handleDescriptionTurn(sess, turn), nil
		default:
			return o.handleApprovalTurn(ctx, sess, turn), nil
		}
	}

	c, err := o.router.Classify(ctx, turn, sess)
	if err != nil {
		o.logger.Warn("Intent classification failed", "session", sess.ID, "error", err)
		return Reply{Text: "I couldn't process that request just now. Please try again."}, nil
	}
	turnsTotal.WithLabelValues(string(c.Intent)).Inc()

	switch c.Intent {
	case intent.Generate:
		return o.startGenerate(ctx, sess, c), nil
	case intent.Update:
		return o.startUpdate(sess, c), nil
	case intent.Read:
		return o.runRead(ctx, c), nil
	case intent.Delete:
		return o.runDelete(ctx, c), nil
	case intent.Explore:
		return o.runExplore(ctx, sess, c), nil
	default:
		prompt := c.ClarifyPrompt
		if prompt == "" {
			prompt = "Could you say more about what you'd like to do with your data quality rules?"
		}
		return Reply{Text: prompt}, nil
	}
}

// startGenerate begins a rule-creation workflow and runs the first
// generation round.
func (o *Orchestrator) startGenerate(ctx context.Context, sess *session.Context, c intent.Classification) Reply {
	sess.Draft = &session.Draft{
		Kind:        session.DraftGenerate,
		Name:        c.RuleName,
		RuleType:    c.RuleType,
		Question:    c.Question,
		Description: c.Description,
	}
	if sess.Draft.Description == "" {
		sess.Draft.Description = c.Question
	}
	sess.RetryCount = 0

	return o.runGenerationLoop(ctx, sess)
}

// runGenerationLoop drives generate -> validate rounds until the SQL
// passes, the retry budget is exhausted, or a collaborator fails.
// Validation errors are fed back into the next generation call.
func (o *Orchestrator) runGenerationLoop(ctx context.Context, sess *session.Context) Reply {
	draft := sess.Draft

	for {
		if sess.RetryCount >= o.cfg.MaxGenerateAttempts {
			generationFailures.Inc()
			o.logger.Info("Generation retry budget exhausted",
				"session", sess.ID,
				"attempts", sess.RetryCount)
			sess.ClearDraft()
			return Reply{Text: fmt.Sprintf(
				"I could not produce a valid rule after %d attempts. The draft has been discarded; try rephrasing the request or narrowing it to one table.",
				o.cfg.MaxGenerateAttempts)}
		}
		sess.RetryCount++
		generationRounds.Inc()

		var sql string
		err := o.retryOnce(ctx, "generate", func() error {
			var genErr error
			sql, genErr = o.generator.Generate(ctx, nl2sql.Request{
				Question:   draft.Question,
				Schema:     sess.Schema,
				PriorError: draft.PriorError,
				Feedback:   draft.Feedback,
			})
			return genErr
		})
		if err != nil {
			return o.collaboratorFailure(sess, "generating SQL", err)
		}

		draft.SQL = sql
		draft.Validated = false
		draft.Approved = false
		draft.Feedback = ""

		err = o.retryOnce(ctx, "validate", func() error {
			return o.validator.Validate(ctx, draft.SQL, sess.Target)
		})

		var valErr *warehouse.ValidationError
		switch {
		case err == nil:
			draft.Validated = true
			draft.PriorError = nil
			return Reply{
				Text:            o.approvalPrompt(draft),
				PendingApproval: true,
			}
		case errors.As(err, &valErr):
			o.logger.Debug("Candidate SQL failed validation",
				"session", sess.ID,
				"round", sess.RetryCount,
				"category", valErr.Category)
			draft.PriorError = valErr
			// Next round regenerates with the error in context.
		default:
			return o.collaboratorFailure(sess, "validating SQL", err)
		}
	}
}

// approvalPrompt presents the validated SQL verbatim and asks for a
// decision. Nothing is persisted until the user approves.
func (o *Orchestrator) approvalPrompt(draft *session.Draft) string {
	if draft.Kind == session.DraftUpdate {
		return fmt.Sprintf(
			"I'll update rule %s with this description:\n\n%s\n\nReply \"approve\" to save, \"revise\" with feedback to change it, or \"abandon\" to discard.",
			draft.Name, draft.Description)
	}
	return fmt.Sprintf(
		"Here is the validated SQL for the new rule:\n\n```sql\n%s\n```\n\nReply \"approve\" to save it, \"revise\" with feedback to change it, or \"abandon\" to discard it.",
		draft.SQL)
}

// handleApprovalTurn consumes the turn while a draft is awaiting the
// approve/revise/abandon decision.
func (o *Orchestrator) handleApprovalTurn(ctx context.Context, sess *session.Context, turn string) Reply {
	decision, feedback := parseDecision(turn)
	draft := sess.Draft

	switch decision {
	case decisionApprove:
		// Approval applies to the exact text the user just saw.
		draft.Approved = true
		return o.persist(ctx, sess)

	case decisionRevise:
		draft.Approved = false
		if draft.Kind == session.DraftUpdate {
			if feedback != "" {
				draft.Description = feedback
			}
			return Reply{Text: o.approvalPrompt(draft), PendingApproval: true}
		}
		draft.Validated = false
		draft.Feedback = feedback
		// The retry budget deliberately carries across revisions.
		return o.runGenerationLoop(ctx, sess)

	case decisionAbandon:
		sess.ClearDraft()
		return Reply{Text: "Discarded the draft. Nothing was saved."}

	default:
		return Reply{
			Text:            "Please reply \"approve\", \"revise\" with your feedback, or \"abandon\".",
			PendingApproval: true,
		}
	}
}

// persist is the only mutating step. It runs strictly after validation
// and approval in the same workflow.
func (o *Orchestrator) persist(ctx context.Context, sess *session.Context) Reply {
	draft := sess.Draft

	if draft.Kind == session.DraftUpdate {
		var updated *rule.Rule
		err := o.retryOnce(ctx, "store.update", func() error {
			var storeErr error
			updated, storeErr = o.rules.Update(ctx, draft.Name, draft.Description)
			return storeErr
		})
		switch {
		case errors.Is(err, rule.ErrNotFound):
			// Back to name collection; the approved description is kept.
			draft.AwaitingName = true
			return Reply{
				Text:            fmt.Sprintf("No rule named %s exists. Which rule should get this description? Give its exact name, or say \"abandon\" to discard the update.", draft.Name),
				PendingApproval: true,
			}
		case err != nil:
			draft.Approved = false
			return Reply{
				Text:            "The rule store is unavailable right now. Reply \"approve\" to retry saving, or \"abandon\" to discard.",
				PendingApproval: true,
			}
		}
		rulesUpdated.Inc()
		sess.ClearDraft()
		return Reply{Text: fmt.Sprintf("Updated rule %s. Its description is now: %s", updated.Name, updated.Description)}
	}

	if draft.Name == "" {
		draft.Name = deriveRuleName(draft.Question, draft.RuleType)
	}

	// Scope identifiers always come from the session, never from the
	// generated text.
	err := o.retryOnce(ctx, "store.create", func() error {
		_, storeErr := o.rules.Create(ctx, rule.Rule{
			Name:        draft.Name,
			Description: draft.Description,
			SQL:         draft.SQL,
			DatasetID:   sess.Target.DatasetID,
			ProjectID:   sess.Target.ProjectID,
		})
		return storeErr
	})
	switch {
	case errors.Is(err, rule.ErrDuplicateName):
		// Keep the validated, approved SQL; only the name is in
		// question. Never overwrite the existing rule.
		draft.AwaitingName = true
		return Reply{
			Text:            fmt.Sprintf("A rule named %s already exists. What should I call this one instead? (Or say \"abandon\" to discard it.)", draft.Name),
			PendingApproval: true,
		}
	case err != nil:
		draft.Approved = false
		return Reply{
			Text:            "The rule store is unavailable right now. Reply \"approve\" to retry saving, or \"abandon\" to discard.",
			PendingApproval: true,
		}
	}

	rulesCreated.Inc()
	name, sql := draft.Name, draft.SQL
	sess.ClearDraft()
	return Reply{Text: fmt.Sprintf("Created rule %s:\n\n```sql\n%s\n```", name, sql)}
}

// handleNameTurn consumes the turn while a create is waiting for a
// non-conflicting rule name.
func (o *Orchestrator) handleNameTurn(ctx context.Context, sess *session.Context, turn string) Reply {
	if decision, _ := parseDecision(turn); decision == decisionAbandon {
		sess.ClearDraft()
		return Reply{Text: "Discarded the draft. Nothing was saved."}
	}

	name := sanitizeRuleName(turn)
	if name == "" {
		return Reply{
			Text:            "That doesn't look like a usable rule name. Use letters, digits, and underscores, e.g. orders_customer_id_null_check.",
			PendingApproval: true,
		}
	}

	sess.Draft.Name = name
	sess.Draft.AwaitingName = false
	return o.persist(ctx, sess)
}

// startUpdate begins a description-update workflow. The proposed change
// is held behind the same approval gate as generated SQL.
func (o *Orchestrator) startUpdate(sess *session.Context, c intent.Classification) Reply {
	sess.Draft = &session.Draft{
		Kind:        session.DraftUpdate,
		Name:        c.RuleName,
		Description: c.Description,
	}
	sess.RetryCount = 0

	if sess.Draft.Description == "" {
		sess.Draft.AwaitingDescription = true
		return Reply{Text: fmt.Sprintf("What should the new description for rule %s be?", sess.Draft.Name)}
	}
	return Reply{Text: o.approvalPrompt(sess.Draft), PendingApproval: true}
}

// handleDescriptionTurn consumes the turn carrying the update's
// replacement description.
func (o *Orchestrator) handleDescriptionTurn(sess *session.Context, turn string) Reply {
	if decision, _ := parseDecision(turn); decision == decisionAbandon {
		sess.ClearDraft()
		return Reply{Text: "Discarded the update. Nothing was changed."}
	}

	sess.Draft.Description = strings.TrimSpace(turn)
	sess.Draft.AwaitingDescription = false
	return Reply{Text: o.approvalPrompt(sess.Draft), PendingApproval: true}
}

// runRead searches the store and re-filters locally; the store may
// return a superset. An empty result is a normal answer, not an error.
func (o *Orchestrator) runRead(ctx context.Context, c intent.Classification) Reply {
	var found []rule.Rule
	err := o.retryOnce(ctx, "store.search", func() error {
		var storeErr error
		found, storeErr = o.rules.Search(ctx, c.Filter)
		return storeErr
	})
	if err != nil {
		o.logger.Warn("Rule search failed", "error", err)
		return Reply{Text: "The rule store is unavailable right now. Please try again in a moment."}
	}

	var matches []rule.Rule
	for _, r := range found {
		if c.Filter.Matches(r) {
			matches = append(matches, r)
		}
	}

	if len(matches) == 0 {
		return Reply{Text: "No matching rules found."}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d matching rule(s):\n", len(matches))
	for _, r := range matches {
		fmt.Fprintf(&sb, "\n- %s: %s\n  ```sql\n  %s\n  ```", r.Name, r.Description, r.SQL)
	}
	return Reply{Text: sb.String()}
}

// runDelete removes a rule by its explicit name. Deleting an unknown
// name is a reported error, never a silent success.
func (o *Orchestrator) runDelete(ctx context.Context, c intent.Classification) Reply {
	err := o.retryOnce(ctx, "store.delete", func() error {
		return o.rules.Delete(ctx, c.RuleName)
	})
	switch {
	case errors.Is(err, rule.ErrNotFound):
		return Reply{Text: fmt.Sprintf("No rule named %s exists, so there was nothing to delete.", c.RuleName)}
	case err != nil:
		o.logger.Warn("Rule delete failed", "rule", c.RuleName, "error", err)
		return Reply{Text: "The rule store is unavailable right now. Please try again in a moment."}
	}

	rulesDeleted.Inc()
	return Reply{Text: fmt.Sprintf("Deleted rule %s.", c.RuleName)}
}

// runExplore forwards a free-form data question to the query execution
// collaborator. Read-only; the rule store is never touched.
func (o *Orchestrator) runExplore(ctx context.Context, sess *session.Context, c intent.Classification) Reply {
	var answer string
	err := o.retryOnce(ctx, "execute", func() error {
		var execErr error
		answer, execErr = o.executor.Execute(ctx, c.Question, sess.Target)
		return execErr
	})
	if err != nil {
		o.logger.Warn("Exploration failed", "session", sess.ID, "error", err)
		return Reply{Text: "I couldn't run that question against the warehouse right now. Please try again in a moment."}
	}
	return Reply{Text: answer}
}

// collaboratorFailure reports a generator/validator transport failure.
// The draft is discarded; no partial state survives, and nothing was
// written because persist is the only mutating step.
func (o *Orchestrator) collaboratorFailure(sess *session.Context, step string, err error) Reply {
	o.logger.Warn("Collaborator failure", "session", sess.ID, "step", step, "error", err)
	sess.ClearDraft()
	return Reply{Text: fmt.Sprintf("Something went wrong while %s and the draft was discarded. This is usually temporary; please try again.", step)}
}

// retryOnce runs fn, retrying exactly once if the failure is transient.
func (o *Orchestrator) retryOnce(ctx context.Context, step string, fn func() error) error {
	err := fn()
	if err == nil || !llm.IsTransient(err) {
		return err
	}
	if ctx.Err() != nil {
		return err
	}

	collaboratorRetries.WithLabelValues(step).Inc()
	o.logger.Debug("Transient failure, retrying step once", "step", step, "error", err)
	return fn()
}
