package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/concha/internal/engine"
	"github.com/roach88/concha/internal/store"
	"github.com/roach88/concha/internal/trick"
	"github.com/roach88/concha/internal/tree"
)

// maxRequestBodySize limits request bodies.
const maxRequestBodySize = 1 << 20 // 1 MB

// Resolver links a parsed sentence. Implemented by engine.Engine.
type Resolver interface {
	Link(ctx context.Context, tr *tree.Tree) (engine.Artifact, error)
}

// Journal persists repository changes and answered documents.
// Implemented by store.Store.
type Journal interface {
	AppendTrick(ctx context.Context, id int, document []byte) error
	AppendTrickDeletion(ctx context.Context, id int) error
	AppendDocument(ctx context.Context, doc store.Document) error
	ListDocuments(ctx context.Context) ([]store.Document, error)
}

// Server handles the HTTP API.
type Server struct {
	repo     *trick.Repository
	resolver Resolver
	parser   engine.Parser
	journal  Journal
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string

	// tricksMu serializes trick writes so an id is journaled before it
	// becomes visible.
	tricksMu sync.Mutex

	// documents is the in-memory log used when there is no journal.
	mu        sync.Mutex
	documents []store.Document
}

// Option configures a Server.
type Option func(*Server)

// WithJournal persists tricks and documents.
func WithJournal(j Journal) Option {
	return func(s *Server) { s.journal = j }
}

// WithMetrics records request outcomes and serves /metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithClock sets the time source for document dates.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithIDs sets the document id generator.
func WithIDs(newID func() string) Option {
	return func(s *Server) { s.newID = newID }
}

// New creates a server over repo. parser turns request text into trees
// and resolver answers them.
func New(repo *trick.Repository, resolver Resolver, parser engine.Parser, opts ...Option) *Server {
	s := &Server{
		repo:     repo,
		resolver: resolver,
		parser:   parser,
		logger:   slog.Default(),
		now:      time.Now,
		newID: func() string {
			id, err := uuid.NewV7()
			if err != nil {
				return uuid.NewString()
			}
			return id.String()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/tricks", s.handleCreateTrick)
	mux.HandleFunc("GET /v1/tricks", s.handleListTricks)
	mux.HandleFunc("GET /v1/tricks/{id}", s.handleGetTrick)
	mux.HandleFunc("PUT /v1/tricks/{id}", s.handlePutTrick)
	mux.HandleFunc("DELETE /v1/tricks/{id}", s.handleDeleteTrick)
	mux.HandleFunc("POST /v1/documents", s.handleCreateDocument)
	mux.HandleFunc("GET /v1/documents", s.handleListDocuments)
	mux.HandleFunc("POST /v1/documents:analyzeSyntax", s.handleAnalyzeSyntax)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return mux
}

// message is the body of CRUD answers and errors.
type message struct {
	ID      *int                    `json:"id,omitempty"`
	Message string                  `json:"message"`
	Errors  []trick.ValidationError `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, message{Message: msg})
}
