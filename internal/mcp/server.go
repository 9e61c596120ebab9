// Package mcp exposes the heartline reply pipeline as Model Context Protocol
// tools over stdio.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/heartline/heartline/internal/memory"
	"github.com/heartline/heartline/internal/reply"
)

// PipelineFactory builds a fresh reply pipeline. The server keeps one
// pipeline per profile and session so each conversation has its own window
// and cache.
type PipelineFactory func() *reply.Pipeline

// Server holds the collaborators the tool handlers share.
type Server struct {
	store       *memory.Store
	profiles    memory.ProfileSource
	recaller    reply.Recaller
	newPipeline PipelineFactory
	version     string
	logger      *slog.Logger

	mu        sync.Mutex
	pipelines map[string]*reply.Pipeline
}

// Option configures a Server.
type Option func(*Server)

// WithProfileSource routes id lookups through src, typically a
// memory.CachedSource in front of the store.
func WithProfileSource(src memory.ProfileSource) Option {
	return func(s *Server) {
		if src != nil {
			s.profiles = src
		}
	}
}

// WithRecaller sets the memory recall used by the recall tool.
func WithRecaller(r reply.Recaller) Option {
	return func(s *Server) {
		if r != nil {
			s.recaller = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewServer creates a Server. A nil factory yields default pipelines.
func NewServer(store *memory.Store, newPipeline PipelineFactory, opts ...Option) *Server {
	if newPipeline == nil {
		newPipeline = func() *reply.Pipeline { return reply.New() }
	}
	s := &Server{
		store:       store,
		profiles:    store,
		recaller:    memory.NewOrchestrator(store, nil, nil, -1, nil),
		newPipeline: newPipeline,
		version:     "dev",
		logger:      slog.Default(),
		pipelines:   map[string]*reply.Pipeline{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// MCPServer builds the protocol server with every tool registered.
func (s *Server) MCPServer() *server.MCPServer {
	ms := server.NewMCPServer("heartline", s.version, server.WithToolCapabilities(false))

	ms.AddTool(mcp.NewTool("reply",
		mcp.WithDescription("Reply to a message in the voice of a companion profile."),
		mcp.WithString("profile", mcp.Required(), mcp.Description("Profile name or id")),
		mcp.WithString("message", mcp.Required(), mcp.Description("The user's message")),
		mcp.WithString("session", mcp.Description("Session id; each session keeps its own context and both turns are stored")),
	), s.handleReply)

	ms.AddTool(mcp.NewTool("recall",
		mcp.WithDescription("List the profile memories most relevant to a query."),
		mcp.WithString("profile", mcp.Required(), mcp.Description("Profile name or id")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Text to match memories against")),
		mcp.WithNumber("top_k", mcp.Description("Maximum memories to return (default 2)")),
	), s.handleRecall)

	ms.AddTool(mcp.NewTool("list_profiles",
		mcp.WithDescription("List stored companion profiles, most recently used first."),
	), s.handleListProfiles)

	ms.AddTool(mcp.NewTool("profile_status",
		mcp.WithDescription("Show a profile's persona details and its reply pipeline state."),
		mcp.WithString("profile", mcp.Required(), mcp.Description("Profile name or id")),
		mcp.WithString("session", mcp.Description("Session id; defaults to the unsaved conversation")),
	), s.handleProfileStatus)

	return ms
}

// Serve runs the server on stdin/stdout until the client disconnects.
func (s *Server) Serve() error {
	defer s.Close()
	s.logger.Info("mcp server starting", "transport", "stdio")
	return server.ServeStdio(s.MCPServer())
}

// Close releases every conversation pipeline.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, p := range s.pipelines {
		_ = p.Close()
		delete(s.pipelines, key)
	}
}

// pipelineKey identifies the conversation a pipeline serves. An empty
// session is the profile's unsaved scratch conversation.
func pipelineKey(profileID, session string) string {
	return profileID + "\x00" + session
}

// pipelineFor returns the pipeline of a conversation, creating it on first
// use. A new pipeline for a stored session starts from its saved turns.
func (s *Server) pipelineFor(ctx context.Context, profileID, session string) *reply.Pipeline {
	key := pipelineKey(profileID, session)
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pipelines[key]
	if ok {
		return p
	}
	p = s.newPipeline()
	if session != "" {
		turns, err := s.store.SessionTurns(ctx, session)
		if err != nil {
			s.logger.Warn("could not restore session", "session", session, "err", err)
		} else {
			p.Restore(turns)
		}
	}
	s.pipelines[key] = p
	return p
}

// existingPipeline returns the pipeline of a conversation without creating one.
func (s *Server) existingPipeline(profileID, session string) (*reply.Pipeline, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pipelines[pipelineKey(profileID, session)]
	return p, ok
}

// resolve looks ref up as an id through the profile source, then as a name.
func (s *Server) resolve(ctx context.Context, ref string) (memory.Profile, error) {
	p, err := s.profiles.GetProfile(ctx, ref)
	if errors.Is(err, memory.ErrProfileNotFound) {
		return s.store.GetProfileByName(ctx, ref)
	}
	return p, err
}
