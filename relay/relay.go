// Package relay drives one chat exchange: it opens a backend stream, forwards
// every token to the caller as it arrives and persists the conversation
// around it.
//
// An exchange bound to a workspace records the user turn before generation
// starts and the assistant turn once the stream ends, whatever the outcome.
// Tokens produced before a backend error or a client disconnect are still
// saved. Exchanges without a valid workspace reference run statelessly and
// never touch the store.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	ai "github.com/spetersoncode/jdcompare"
	"github.com/spetersoncode/jdcompare/prompt"
	"github.com/spetersoncode/jdcompare/store"
)

// Resolver maps a provider name to a ready backend.
type Resolver interface {
	Resolve(name string) (ai.ChatProvider, error)
}

// Sink receives the caller-facing events of an exchange. Every call must be
// delivered to the caller before it returns; an error means the caller is
// gone.
type Sink interface {
	Token(text string) error
	Done() error
	Error(msg string) error
}

// Request is one chat turn as submitted by the caller.
type Request struct {
	WorkspaceID string
	Cards       []ai.DocumentCard
	History     []ai.Message
	UserMessage string
	Provider    string
	Model       string
}

// Relay opens exchanges against a provider registry and conversation store.
type Relay struct {
	resolver Resolver
	conv     store.Conversations
	logger   *slog.Logger
}

// Option configures a Relay.
type Option func(*Relay)

// WithLogger sets the logger used for exchange diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Relay) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Relay. A nil conv makes every exchange stateless.
func New(resolver Resolver, conv store.Conversations, opts ...Option) *Relay {
	r := &Relay{
		resolver: resolver,
		conv:     conv,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open prepares an exchange. Configuration errors are returned here, before
// anything has been sent to the caller. A missing or malformed workspace
// reference is not an error: the exchange runs statelessly.
func (r *Relay) Open(ctx context.Context, req Request) (*Exchange, error) {
	name := req.Provider
	if name == "" {
		name = ai.DefaultProvider.String()
	}

	provider, err := r.resolver.Resolve(name)
	if err != nil {
		return nil, err
	}

	logger := r.logger.With("provider", name)
	e := &Exchange{
		provider: provider,
		conv:     r.conv,
		logger:   logger,
		parts: prompt.Build(prompt.Request{
			Cards:       req.Cards,
			History:     req.History,
			UserMessage: req.UserMessage,
		}),
	}
	if req.Model != "" {
		e.opts = append(e.opts, ai.WithModel(req.Model))
	}

	if req.WorkspaceID != "" && r.conv != nil {
		id, err := uuid.Parse(req.WorkspaceID)
		if err != nil {
			logger.DebugContext(ctx, "running stateless exchange",
				"error", &ai.ValidationError{Field: "workspace id", Value: req.WorkspaceID, Err: err})
		} else {
			e.workspaceID = &id
			e.logger = logger.With("workspace_id", id)
		}
	}
	return e, nil
}

// Exchange is a single chat turn. Run may be called once.
type Exchange struct {
	provider    ai.ChatProvider
	conv        store.Conversations
	logger      *slog.Logger
	parts       ai.PromptParts
	opts        []ai.Option
	workspaceID *uuid.UUID

	state atomic.Int32
}

// State returns the current lifecycle state.
func (e *Exchange) State() State {
	return State(e.state.Load())
}

// Stateful reports whether the exchange is bound to a workspace.
func (e *Exchange) Stateful() bool {
	return e.workspaceID != nil
}

func (e *Exchange) setState(s State) {
	prev := State(e.state.Swap(int32(s)))
	e.logger.Debug("exchange state changed", "from", prev, "to", s)
}

// Run streams the backend reply into sink. It returns nil once a done or
// error event has been delivered, and a non-nil error when the caller went
// away (sink failure or ctx cancellation). Upstream generation is cancelled
// before Run returns.
func (e *Exchange) Run(ctx context.Context, sink Sink) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	sessionID := e.persistUserTurn(ctx)

	var (
		reply  strings.Builder
		tokens int
		final  = StateFailed
	)
	defer func() {
		e.finalize(ctx, sessionID, reply.String(), tokens)
		e.setState(final)
		e.logger.Info("exchange finished",
			"state", final,
			"tokens", tokens,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}()

	e.setState(StateStreaming)
	stream, err := e.provider.ChatStream(ctx, e.parts, e.opts...)
	if err != nil {
		return e.fail(ctx, sink, err)
	}

	for {
		if err := ctx.Err(); err != nil {
			e.logger.Info("client disconnected", "tokens", tokens)
			return err
		}

		select {
		case <-ctx.Done():
			continue
		case ev, ok := <-stream:
			switch {
			case !ok || ev.Done:
				if !ok && ctx.Err() != nil {
					continue
				}
				if err := sink.Done(); err != nil {
					e.logger.Info("sink write failed", "error", err, "tokens", tokens)
					return err
				}
				final = StateClosed
				return nil
			case ev.Err != nil:
				return e.fail(ctx, sink, ev.Err)
			case ev.Delta != "":
				reply.WriteString(ev.Delta)
				tokens++
				if err := sink.Token(ev.Delta); err != nil {
					e.logger.Info("sink write failed", "error", err, "tokens", tokens)
					return err
				}
			}
		}
	}
}

// fail reports a backend error to the caller. Errors caused by the caller's
// own cancellation are not reported.
func (e *Exchange) fail(ctx context.Context, sink Sink, err error) error {
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return ctx.Err()
	}
	e.logger.Error("chat stream failed",
		"error", err,
		"transient", ai.IsTransient(err),
		"status", ai.StatusCodeOf(err),
	)
	return sink.Error(err.Error())
}

// persistUserTurn records the user message and returns the session the
// assistant turn belongs to. Any store failure degrades the exchange to
// stateless mode and yields nil.
func (e *Exchange) persistUserTurn(ctx context.Context) *uuid.UUID {
	if e.workspaceID == nil {
		return nil
	}

	e.setState(StateSessionResolving)
	session, err := e.conv.SessionForWorkspace(ctx, *e.workspaceID)
	if err == nil && session == nil {
		session, err = e.conv.CreateSession(ctx, *e.workspaceID)
	}
	if err != nil {
		e.logger.Warn("session unavailable, continuing without history", "error", err)
		return nil
	}

	e.setState(StateUserTurnPersisting)
	if _, err := e.conv.AppendMessage(ctx, session.ID, ai.RoleUser, e.parts.UserMessage); err != nil {
		e.logger.Warn("failed to save user message, continuing without history",
			"session_id", session.ID, "error", err)
		return nil
	}
	return &session.ID
}

// finalize saves the assistant reply when at least one token was produced.
// It runs on a context detached from the caller so a disconnect cannot abort
// the write.
func (e *Exchange) finalize(ctx context.Context, sessionID *uuid.UUID, reply string, tokens int) {
	e.setState(StateFinalizing)
	if sessionID == nil || tokens == 0 {
		return
	}
	if _, err := e.conv.AppendMessage(context.WithoutCancel(ctx), *sessionID, ai.RoleAssistant, reply); err != nil {
		e.logger.Error("failed to save assistant message",
			"session_id", *sessionID, "tokens", tokens, "error", err)
	}
}
