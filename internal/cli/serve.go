package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heartline/heartline/internal/mcp"
	"github.com/heartline/heartline/internal/memory"
	"github.com/heartline/heartline/internal/reply"
)

func newServeCmd() *cobra.Command {
	var cacheSize int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reply pipeline as MCP tools over stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout exposing the tools
reply, recall, list_profiles and profile_status.

Logs go to stderr so they never corrupt the protocol stream.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			profiles, err := memory.NewCachedSource(rt.store, cacheSize)
			if err != nil {
				return fmt.Errorf("profile cache: %w", err)
			}

			srv := mcp.NewServer(rt.store,
				func() *reply.Pipeline { return rt.pipeline() },
				mcp.WithProfileSource(profiles),
				mcp.WithRecaller(rt.orch),
				mcp.WithVersion(version),
				mcp.WithLogger(rt.logger),
			)
			return srv.Serve()
		},
	}

	cmd.Flags().IntVar(&cacheSize, "profile-cache", memory.DefaultProfileCacheSize, "number of profiles kept in memory")
	return cmd
}
