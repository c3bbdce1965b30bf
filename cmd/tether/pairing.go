package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quailyquaily/tether/internal/logutil"
	"github.com/quailyquaily/tether/internal/statepaths"
	"github.com/quailyquaily/tether/pairing"
)

func newPairingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pairing",
		Short: "Inspect platform pairing state",
	}
	cmd.AddCommand(newPairingShowCmd())
	return cmd
}

func newPairingShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the pairing code, control channel, and paired users for a platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			platform := strings.TrimSpace(flagOrViperString(cmd, "platform", "bridge.platform"))
			if platform == "" {
				return fmt.Errorf("missing platform (set via --platform or %s_BRIDGE_PLATFORM)", envPrefix)
			}

			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}

			fixedCode := flagOrViperString(cmd, "pairing-code", "bridge.pairing_code")
			store := pairing.NewStore(logger, statepaths.PairingStatePath(platform), fixedCode)
			st := store.Snapshot()

			fmt.Printf("Platform:        %s\n", platform)
			fmt.Printf("Pairing code:    %s\n", st.PairingCode)
			if st.ControlChannelID != "" {
				fmt.Printf("Control channel: %s\n", st.ControlChannelID)
			} else {
				fmt.Printf("Control channel: (unbound)\n")
			}
			fmt.Printf("Paired users:    %d\n", len(st.PairedUserIDs))
			for _, id := range st.PairedUserIDs {
				fmt.Printf("  - %s\n", id)
			}
			return nil
		},
	}

	cmd.Flags().String("platform", "", "Platform name (telegram, slack, discord).")
	cmd.Flags().String("pairing-code", "", "Fixed pairing code override.")

	return cmd
}
