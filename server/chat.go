package server

import (
	"fmt"
	"net/http"
	"time"

	ai "github.com/spetersoncode/jdcompare"
	"github.com/spetersoncode/jdcompare/internal/sse"
	"github.com/spetersoncode/jdcompare/relay"
)

type chatRequest struct {
	WorkspaceID string            `json:"jd_set_id"`
	Cards       []ai.DocumentCard `json:"jd_cards"`
	Messages    []ai.Message      `json:"messages"`
	UserMessage string            `json:"user_message"`
	Provider    string            `json:"provider"`
	Model       string            `json:"model"`
}

func (c chatRequest) validate() error {
	for i, m := range c.Messages {
		if !m.Role.Valid() {
			return fmt.Errorf("messages[%d]: invalid role %q", i, m.Role)
		}
	}
	return nil
}

// countingSink tallies frames delivered to the caller.
type countingSink struct {
	*sse.Writer
	sent int
}

func (c *countingSink) Token(text string) error {
	c.sent++
	return c.Writer.Token(text)
}

func (c *countingSink) Done() error {
	c.sent++
	return c.Writer.Done()
}

func (c *countingSink) Error(msg string) error {
	c.sent++
	return c.Writer.Error(msg)
}

// handleChatStream runs one chat exchange and streams it as SSE. Failures
// before the stream opens are answered with a JSON error; afterwards every
// failure is reported in-band.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req chatRequest
	if err := decodeBody(r, &req, false); err != nil {
		s.logger.Warn("invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.validate(); err != nil {
		s.logger.Warn("invalid chat request", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	log := s.logger.With(
		"provider", req.Provider,
		"jd_set_id", req.WorkspaceID,
	)

	ex, err := s.relay.Open(r.Context(), relay.Request{
		WorkspaceID: req.WorkspaceID,
		Cards:       req.Cards,
		History:     req.Messages,
		UserMessage: req.UserMessage,
		Provider:    req.Provider,
		Model:       req.Model,
	})
	if err != nil {
		if ai.IsConfiguration(err) {
			log.Warn("chat configuration error", "error", err)
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error("failed to open chat exchange", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		log.Error("streaming not supported")
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	log.Info("request started",
		"card_count", len(req.Cards),
		"message_count", len(req.Messages),
		"stateful", ex.Stateful(),
	)

	sink := &countingSink{Writer: writer}
	writer.Start()
	runErr := ex.Run(r.Context(), sink)

	duration := time.Since(start)
	if runErr != nil {
		log.Warn("request aborted",
			"duration_ms", duration.Milliseconds(),
			"events_sent", sink.sent,
			"state", ex.State(),
			"error", runErr,
		)
		return
	}
	log.Info("request completed",
		"duration_ms", duration.Milliseconds(),
		"events_sent", sink.sent,
		"state", ex.State(),
	)
}
