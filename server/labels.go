package server

import (
	"net/http"

	ai "github.com/spetersoncode/jdcompare"
)

type labelRequest struct {
	Text     string `json:"text"`
	Provider string `json:"provider"`
}

func (s *Server) handleExtractLabels(w http.ResponseWriter, r *http.Request) {
	var req labelRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Provider == "" {
		req.Provider = ai.DefaultProvider.String()
	}

	provider, err := s.providers.Resolve(req.Provider)
	if err != nil {
		if ai.IsConfiguration(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("failed to resolve provider", "provider", req.Provider, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	labels, err := provider.ExtractLabels(r.Context(), req.Text)
	if err != nil {
		s.logger.Error("label extraction failed",
			"provider", req.Provider,
			"transient", ai.IsTransient(err),
			"error", err,
		)
		writeError(w, http.StatusBadGateway, "Label extraction failed")
		return
	}
	writeJSON(w, http.StatusOK, labels)
}
