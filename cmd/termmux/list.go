package main

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tmux-backed sessions on the server",
		Long: "List sessions the tmux backend left on the server. Native sessions\n" +
			"live inside the owning process and are not visible across invocations.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := exec.LookPath("tmux"); err != nil {
				return fmt.Errorf("tmux not found in PATH")
			}
			out, err := exec.CommandContext(cmd.Context(), "tmux", "list-sessions", "-F", "#{session_name}").Output()
			if err != nil {
				// No server running means no sessions.
				fmt.Fprintln(cmd.OutOrStdout(), "no sessions")
				return nil
			}
			found := false
			for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
				if strings.HasPrefix(line, "termmux-") {
					fmt.Fprintln(cmd.OutOrStdout(), line)
					found = true
				}
			}
			if !found {
				fmt.Fprintln(cmd.OutOrStdout(), "no sessions")
			}
			return nil
		},
	}
}
