package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/roach88/concha/internal/engine"
	"github.com/roach88/concha/internal/store"
	"github.com/roach88/concha/internal/tree"
)

type textRequest struct {
	Text string `json:"text"`
}

// documentResponse is the answer to POST /v1/documents.
type documentResponse struct {
	ID      string     `json:"id"`
	Answer  string     `json:"answer_text"`
	Request *tree.Tree `json:"request"`
	Tricks  []int      `json:"tricks"`
	Status  string     `json:"status"`
}

// HTTPStatus maps an artifact status to the status of the HTTP answer.
func HTTPStatus(status string) int {
	switch status {
	case engine.StatusOK:
		return http.StatusCreated
	case engine.StatusNoTrick:
		return http.StatusNotFound
	}
	code, err := strconv.Atoi(status)
	if err != nil || code < 100 || code > 599 {
		return http.StatusInternalServerError
	}
	return code
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	text, ok := readText(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	tr, ok := s.parse(ctx, w, text)
	if !ok {
		return
	}

	art, err := s.resolver.Link(ctx, tr)
	if err != nil {
		var limit *engine.LimitError
		switch {
		case errors.As(err, &limit):
			art = engine.Artifact{Used: []int{}, Status: engine.StatusLimit}
		case ctx.Err() != nil:
			writeMessage(w, http.StatusServiceUnavailable, "resolution cancelled")
			return
		case errors.Is(err, context.DeadlineExceeded):
			s.logger.Warn("resolution timed out", "text", text)
			writeMessage(w, http.StatusGatewayTimeout, "resolution timed out")
			return
		default:
			s.logger.Error("resolution failed", "error", err)
			writeMessage(w, http.StatusInternalServerError, "resolution failed")
			return
		}
	}
	s.metrics.observeResolution(art.Status)

	used := art.Used
	if used == nil {
		used = []int{}
	}
	request, _ := json.Marshal(tr)
	doc := store.Document{
		ID:      s.newID(),
		Date:    s.now().UTC(),
		Text:    text,
		Answer:  art.Text(),
		Status:  art.Status,
		Tricks:  used,
		Request: request,
	}
	s.appendDocument(ctx, doc)

	writeJSON(w, HTTPStatus(art.Status), documentResponse{
		ID:      doc.ID,
		Answer:  doc.Answer,
		Request: tr,
		Tricks:  used,
		Status:  art.Status,
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	if s.journal != nil {
		docs, err := s.journal.ListDocuments(r.Context())
		if err != nil {
			s.logger.Error("failed to list documents", "error", err)
			writeMessage(w, http.StatusInternalServerError, "failed to list documents")
			return
		}
		writeJSON(w, http.StatusOK, docs)
		return
	}
	s.mu.Lock()
	docs := append([]store.Document{}, s.documents...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleAnalyzeSyntax(w http.ResponseWriter, r *http.Request) {
	text, ok := readText(w, r)
	if !ok {
		return
	}
	tr, ok := s.parse(r.Context(), w, text)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

func (s *Server) appendDocument(ctx context.Context, doc store.Document) {
	if s.journal != nil {
		if err := s.journal.AppendDocument(ctx, doc); err != nil {
			s.logger.Error("failed to persist document", "id", doc.ID, "error", err)
		}
		return
	}
	s.mu.Lock()
	s.documents = append(s.documents, doc)
	s.mu.Unlock()
}

// parse runs the parser, answering 422 for text it cannot analyze and
// 502 when the parser itself fails.
func (s *Server) parse(ctx context.Context, w http.ResponseWriter, text string) (*tree.Tree, bool) {
	tr, err := s.parser.Parse(ctx, text)
	if err != nil {
		var perr *tree.ParseError
		if errors.As(err, &perr) {
			s.logger.Warn("text not parsed", "text", text, "error", err)
			writeMessage(w, http.StatusUnprocessableEntity, err.Error())
			return nil, false
		}
		s.logger.Error("parser failed", "error", err)
		writeMessage(w, http.StatusBadGateway, "parser unavailable")
		return nil, false
	}
	return tr, true
}

func readText(w http.ResponseWriter, r *http.Request) (string, bool) {
	data, ok := readBody(w, r)
	if !ok {
		return "", false
	}
	var req textRequest
	if err := json.Unmarshal(data, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return "", false
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeMessage(w, http.StatusBadRequest, "text is required")
		return "", false
	}
	return text, true
}
