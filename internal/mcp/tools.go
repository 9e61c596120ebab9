package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/heartline/heartline/internal/memory"
	"github.com/heartline/heartline/internal/reply"
)

func (s *Server) handleReply(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("profile")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: profile"), nil
	}
	message, err := req.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: message"), nil
	}
	session := req.GetString("session", "")

	p, err := s.resolve(ctx, ref)
	if err != nil {
		return profileError(ref, err), nil
	}

	pl := s.pipelineFor(ctx, p.ID, session)
	res := pl.Reply(ctx, message, reply.Context{Profile: &p, History: pl.History()})

	if session != "" {
		s.persist(ctx, session, p.ID, message, res)
	}
	_ = s.store.TouchProfile(ctx, p.ID)

	return mcp.NewToolResultText(res.Text), nil
}

// persist stores both turns of an exchange (best-effort).
func (s *Server) persist(ctx context.Context, session, profileID, message string, res reply.Result) {
	turns := []memory.Turn{
		{Role: memory.RoleUser, Text: message, At: res.Timestamp},
		{Role: memory.RoleAgent, Text: res.Text, At: res.Timestamp, Method: string(res.ReportedMethod())},
	}
	for _, t := range turns {
		if err := s.store.AppendTurn(ctx, session, profileID, t); err != nil {
			s.logger.Warn("could not store turn", "session", session, "err", err)
			return
		}
	}
}

func (s *Server) handleRecall(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("profile")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: profile"), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}
	topK := req.GetInt("top_k", memory.DefaultTopK)

	p, err := s.resolve(ctx, ref)
	if err != nil {
		return profileError(ref, err), nil
	}

	hits := s.recaller.Recall(ctx, p, query, topK)
	if len(hits) == 0 {
		return mcp.NewToolResultText("No matching memories."), nil
	}

	var sb strings.Builder
	for _, h := range hits {
		fmt.Fprintf(&sb, "- %s\n", h)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleListProfiles(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list profiles: %v", err)), nil
	}
	if len(profiles) == 0 {
		return mcp.NewToolResultText("No profiles stored."), nil
	}

	var sb strings.Builder
	for _, p := range profiles {
		fmt.Fprintf(&sb, "%s (id: %s)\n  addressed as %q | last used: %s\n",
			p.Name, p.ID, p.Address(), p.LastUsedAt.Format("2006-01-02 15:04"))
		if p.Description != "" {
			fmt.Fprintf(&sb, "  %s\n", p.Description)
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleProfileStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("profile")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: profile"), nil
	}

	session := req.GetString("session", "")

	p, err := s.resolve(ctx, ref)
	if err != nil {
		return profileError(ref, err), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Profile:  %s\n", p.Name)
	fmt.Fprintf(&sb, "Address:  %s\n", p.Address())
	fmt.Fprintf(&sb, "Traits:   %s\n", formatWeights(p.Traits))
	if len(p.Emotions) > 0 {
		fmt.Fprintf(&sb, "Emotions: %s\n", formatWeights(p.Emotions))
	}
	fmt.Fprintf(&sb, "Memories: %d\n", len(p.Memories))

	pl, ok := s.existingPipeline(p.ID, session)
	if !ok {
		sb.WriteString("Pipeline: idle (no replies yet)\n")
		return mcp.NewToolResultText(sb.String()), nil
	}

	st := pl.Stats()
	fmt.Fprintf(&sb, "Tiers:    %s\n", strings.Join(st.Tiers, " -> "))
	fmt.Fprintf(&sb, "Cache:    %d entries, %d hits\n", st.CacheSize, st.CacheHits)
	fmt.Fprintf(&sb, "Window:   %d/%d turns\n", st.WindowLen, st.WindowCap)
	for _, name := range st.Tiers {
		ts := st.TierOutcome[name]
		fmt.Fprintf(&sb, "  %-12s served %d, failed %d\n", name, ts.Served, ts.Failed)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func profileError(ref string, err error) *mcp.CallToolResult {
	if errors.Is(err, memory.ErrProfileNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("no profile named %q", ref))
	}
	return mcp.NewToolResultError(fmt.Sprintf("failed to load profile: %v", err))
}

// formatWeights renders a weight map heaviest first.
func formatWeights(m map[string]float64) string {
	if len(m) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s %.2f", k, m[k])
	}
	return strings.Join(parts, ", ")
}
