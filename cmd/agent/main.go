// Command agent runs the interactive knowledge graph agent.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/adithya1123/cli-agent-w-graphiti/config"
	"github.com/adithya1123/cli-agent-w-graphiti/logging"
	"github.com/adithya1123/cli-agent-w-graphiti/session"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var userFlag string

	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Conversational agent backed by a temporal knowledge graph",
		Long: `agent is an interactive assistant that remembers what it learns.
Conversations are persisted to a Graphiti knowledge graph in the background,
scoped per user, and recalled as context on later turns.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			log, closeLog, err := logging.Setup(cfg.LogLevel, cfg.LogFile)
			if err != nil {
				return err
			}
			defer closeLog()

			owner := userFlag
			if owner == "" {
				owner, err = promptUser(cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil {
					return err
				}
			}
			if err := validateUserID(owner); err != nil {
				return err
			}
			if err := saveLastUser(owner); err != nil {
				log.Warn().Err(err).Msg("could not remember user id")
			}

			return session.With(owner, cfg, log, func(s *session.Session) error {
				return runREPL(cmd.InOrStdin(), cmd.OutOrStdout(), s, cfg.AgentName)
			})
		},
	}

	cmd.Flags().StringVarP(&userFlag, "user", "u", "", "user id to converse as (prompted if omitted)")
	return cmd
}
