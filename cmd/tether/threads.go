package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quailyquaily/tether/internal/logutil"
	"github.com/quailyquaily/tether/internal/statepaths"
	"github.com/quailyquaily/tether/naming"
)

func newThreadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threads",
		Short: "Inspect and manage persisted thread name reservations",
	}
	cmd.PersistentFlags().String("platform", "", "Platform name (telegram, slack, discord).")

	cmd.AddCommand(newThreadsListCmd())
	cmd.AddCommand(newThreadsReleaseCmd())
	return cmd
}

func threadsRegistry(cmd *cobra.Command) (*naming.Registry, string, error) {
	platform := strings.TrimSpace(flagOrViperString(cmd, "platform", "bridge.platform"))
	if platform == "" {
		return nil, "", fmt.Errorf("missing platform (set via --platform or %s_BRIDGE_PLATFORM)", envPrefix)
	}
	logger, err := logutil.LoggerFromViper()
	if err != nil {
		return nil, "", err
	}
	return naming.NewRegistry(logger, statepaths.ThreadNamesPath(platform)), platform, nil
}

func newThreadsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List reserved thread names for a platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, platform, err := threadsRegistry(cmd)
			if err != nil {
				return err
			}

			all := reg.All()
			if len(all) == 0 {
				fmt.Printf("No thread names reserved for %s.\n", platform)
				return nil
			}

			ids := make([]string, 0, len(all))
			for id := range all {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				fmt.Printf("%s\t%s\n", id, all[id])
			}
			return nil
		},
	}
}

func newThreadsReleaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "release <session-id>",
		Short: "Release a session's reserved thread name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, _, err := threadsRegistry(cmd)
			if err != nil {
				return err
			}

			sessionID := args[0]
			name, ok := reg.NameFor(sessionID)
			if !ok {
				fmt.Printf("No reservation for session %s.\n", sessionID)
				return nil
			}
			reg.Release(sessionID)
			fmt.Printf("Released %q (session %s).\n", name, sessionID)
			return nil
		},
	}
}
