package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/termmux/core"
	"pkt.systems/termmux/internal/appconfig"
)

func newDoctorCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run termmux diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := pslog.Ctx(ctx)
			out := cmd.OutOrStdout()

			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			configPath := cfgPath
			if strings.TrimSpace(configPath) == "" {
				if configPath, err = appconfig.DefaultConfigPath(); err != nil {
					return err
				}
			}
			logger.Info("doctor start", "config", configPath)

			engineCfg, err := cfg.EngineConfig()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "config:  %s\n", configPath)
			fmt.Fprintf(out, "backend: %s\n", engineCfg.Backend)

			if sh := os.Getenv("SHELL"); sh != "" {
				fmt.Fprintf(out, "shell:   %s\n", sh)
			} else {
				fmt.Fprintln(out, "shell:   /bin/sh (SHELL unset)")
			}

			if path, err := exec.LookPath("tmux"); err == nil {
				fmt.Fprintf(out, "tmux:    %s\n", path)
			} else {
				fmt.Fprintln(out, "tmux:    not found (tmux backend unavailable)")
			}

			// Spawn a throwaway session on the configured backend to prove
			// the full path works.
			reg, err := core.NewRegistry(engineCfg, core.RegistryDeps{Logger: logger})
			if err != nil {
				return err
			}
			info, err := reg.Launch(ctx, "printf termmux-doctor-ok", "", 0, 0)
			if err != nil {
				return fmt.Errorf("probe session: %w", err)
			}
			ok := false
			deadline := time.Now().Add(5 * time.Second)
			for time.Now().Before(deadline) {
				screen, err := reg.Screen(ctx, info.ID, false)
				if err == nil && strings.Contains(screen, "termmux-doctor-ok") {
					ok = true
					break
				}
				time.Sleep(50 * time.Millisecond)
			}
			_ = reg.Kill(ctx, info.ID, 0)
			if !ok {
				return fmt.Errorf("probe session produced no output on backend %s", engineCfg.Backend)
			}
			fmt.Fprintln(out, "probe:   ok")

			fmt.Fprintf(out, "limits:  %d sessions, %dx%d, %d scrollback lines\n",
				engineCfg.MaxSessions, engineCfg.Rows, engineCfg.Cols, engineCfg.ScrollbackLines)
			return nil
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "path to config file")
	return cmd
}
