package server

import (
	"net/http"

	"github.com/spetersoncode/jdcompare/store"
)

type workspaceRequest struct {
	Name *string `json:"name"`
}

type syncRequest struct {
	Items []store.ItemInput `json:"items"`
}

func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req workspaceRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	name := ""
	if req.Name != nil {
		name = *req.Name
	}

	detail, err := s.workspaces.CreateWorkspace(r.Context(), name)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	s.logger.Info("workspace created", "jd_set_id", detail.ID)
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	id, ok := workspaceID(w, r)
	if !ok {
		return
	}
	detail, err := s.workspaces.GetWorkspace(r.Context(), id)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleUpdateWorkspace(w http.ResponseWriter, r *http.Request) {
	id, ok := workspaceID(w, r)
	if !ok {
		return
	}
	var req workspaceRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	detail, err := s.workspaces.RenameWorkspace(r.Context(), id, req.Name)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	id, ok := workspaceID(w, r)
	if !ok {
		return
	}
	if err := s.workspaces.DeleteWorkspace(r.Context(), id); err != nil {
		s.storeError(w, r, err)
		return
	}
	s.logger.Info("workspace deleted", "jd_set_id", id)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleSyncItems(w http.ResponseWriter, r *http.Request) {
	id, ok := workspaceID(w, r)
	if !ok {
		return
	}
	var req syncRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	items, err := s.workspaces.SyncItems(r.Context(), id, req.Items)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	if items == nil {
		items = []store.Item{}
	}
	s.logger.Debug("items synced", "jd_set_id", id, "count", len(items))
	writeJSON(w, http.StatusOK, items)
}
