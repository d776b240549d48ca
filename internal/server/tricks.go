package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/roach88/concha/internal/trick"
)

func (s *Server) handleCreateTrick(w http.ResponseWriter, r *http.Request) {
	data, ok := readBody(w, r)
	if !ok {
		return
	}
	t, err := trick.Parse(data)
	if err != nil {
		writeValidation(w, err)
		return
	}

	s.tricksMu.Lock()
	defer s.tricksMu.Unlock()
	id := s.repo.NextID()
	if s.journal != nil {
		if err := s.journal.AppendTrick(r.Context(), id, data); err != nil {
			s.logger.Error("failed to persist trick", "id", id, "error", err)
			writeMessage(w, http.StatusInternalServerError, "failed to persist trick")
			return
		}
	}
	s.repo.Insert(id, t)
	s.logger.Info("trick created", "id", id, "method", t.Method())
	s.metrics.setTricks(s.repo.Len())
	writeJSON(w, http.StatusCreated, message{ID: &id, Message: fmt.Sprintf("trick %d created Ok", id)})
}

func (s *Server) handleListTricks(w http.ResponseWriter, r *http.Request) {
	entries := s.repo.List()
	if entries == nil {
		entries = []trick.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGetTrick(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := s.repo.Get(id)
	if err != nil {
		writeMessage(w, http.StatusNotFound, fmt.Sprintf("trick %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, trick.Entry{ID: id, Trick: t})
}

func (s *Server) handlePutTrick(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	data, ok := readBody(w, r)
	if !ok {
		return
	}
	t, err := trick.Parse(data)
	if err != nil {
		writeValidation(w, err)
		return
	}

	s.tricksMu.Lock()
	defer s.tricksMu.Unlock()
	if _, err := s.repo.Get(id); err != nil {
		writeMessage(w, http.StatusNotFound, fmt.Sprintf("trick %d not found", id))
		return
	}
	if s.journal != nil {
		if err := s.journal.AppendTrick(r.Context(), id, data); err != nil {
			s.logger.Error("failed to persist trick", "id", id, "error", err)
			writeMessage(w, http.StatusInternalServerError, "failed to persist trick")
			return
		}
	}
	if err := s.repo.Put(id, t); err != nil {
		writeMessage(w, http.StatusNotFound, fmt.Sprintf("trick %d not found", id))
		return
	}
	s.logger.Info("trick modified", "id", id)
	s.metrics.setTricks(s.repo.Len())
	writeJSON(w, http.StatusOK, message{ID: &id, Message: fmt.Sprintf("trick %d modified Ok", id)})
}

func (s *Server) handleDeleteTrick(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	s.tricksMu.Lock()
	defer s.tricksMu.Unlock()
	if _, err := s.repo.Get(id); err != nil {
		writeMessage(w, http.StatusNotFound, fmt.Sprintf("trick %d not found", id))
		return
	}
	if s.journal != nil {
		if err := s.journal.AppendTrickDeletion(r.Context(), id); err != nil {
			s.logger.Error("failed to persist trick deletion", "id", id, "error", err)
			writeMessage(w, http.StatusInternalServerError, "failed to persist trick deletion")
			return
		}
	}
	if err := s.repo.Delete(id); err != nil {
		writeMessage(w, http.StatusNotFound, fmt.Sprintf("trick %d not found", id))
		return
	}
	s.logger.Info("trick deleted", "id", id)
	s.metrics.setTricks(s.repo.Len())
	writeJSON(w, http.StatusOK, message{ID: &id, Message: fmt.Sprintf("trick %d deleted Ok", id)})
}

// pathID reads the {id} path value. Unknown ids are reported as not
// found, like ids that were never assigned.
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.PathValue("id")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 0 {
		writeMessage(w, http.StatusNotFound, fmt.Sprintf("trick %s not found", raw))
		return 0, false
	}
	return id, true
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		writeMessage(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	return data, true
}

func writeValidation(w http.ResponseWriter, err error) {
	var verrs trick.ValidationErrors
	if errors.As(err, &verrs) {
		writeJSON(w, http.StatusBadRequest, message{Message: "invalid trick", Errors: verrs})
		return
	}
	writeMessage(w, http.StatusBadRequest, err.Error())
}
