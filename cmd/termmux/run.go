package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/termmux/core"
	"pkt.systems/termmux/internal/appconfig"
	"pkt.systems/termmux/internal/logx"
	"pkt.systems/termmux/schema"
)

func newRunCmd() *cobra.Command {
	var cfgPath string
	var backend string
	var dir string
	var send string
	var capturePath string
	var rows, cols int
	var colors bool
	var doCapture bool
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "run [command]",
		Short: "Launch a command in a session and print its screen",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := logx.Ctx(ctx)

			reg, err := buildRegistry(ctx, cfgPath, backend)
			if err != nil {
				return err
			}

			command := strings.Join(args, " ")
			info, err := reg.Launch(ctx, command, dir, rows, cols)
			if err != nil {
				return err
			}
			// Everything below is scoped to this session; the context
			// carries the annotated logger from here on.
			ctx = logx.ContextWithSessionLogger(ctx, logx.WithSession(logger, info.ID), info.ID)
			log := logx.CtxSession(ctx, info.ID)
			log.Info("session launched", "backend", reg.Backend())

			if doCapture || capturePath != "" {
				if err := reg.CaptureStart(ctx, info.ID, capturePath); err != nil {
					return err
				}
			}
			if send != "" {
				if err := reg.SendKeys(ctx, info.ID, []byte(send)); err != nil {
					return err
				}
			}

			waitForExit(ctx, reg, info.ID, wait)

			screen, err := reg.Screen(ctx, info.ID, colors)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(screen, " \n"))

			if doCapture || capturePath != "" {
				summary, err := reg.CaptureStop(ctx, info.ID)
				if err != nil {
					return err
				}
				log.Info("capture written", "path", summary.Path, "bytes", summary.Bytes, "duration", summary.Duration)
			}
			return reg.Kill(ctx, info.ID, 0)
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "", "path to config file")
	cmd.Flags().StringVar(&backend, "backend", "", "session backend (native, tmux)")
	cmd.Flags().StringVar(&dir, "dir", "", "working directory for the command")
	cmd.Flags().StringVar(&send, "send", "", "input to send after launch")
	cmd.Flags().IntVar(&rows, "rows", 0, "grid rows (default from config)")
	cmd.Flags().IntVar(&cols, "cols", 0, "grid cols (default from config)")
	cmd.Flags().BoolVar(&colors, "colors", false, "keep SGR colors in the printed screen")
	cmd.Flags().BoolVar(&doCapture, "capture", false, "capture raw output to the capture directory")
	cmd.Flags().StringVar(&capturePath, "capture-file", "", "capture raw output to this file")
	cmd.Flags().DurationVar(&wait, "wait", 5*time.Second, "how long to wait for the command")
	return cmd
}

// waitForExit polls until the session reaches a terminal status or the
// budget runs out. The engine imposes no timeouts of its own; this poll is
// purely a CLI convenience.
func waitForExit(ctx context.Context, reg *core.Registry, id schema.SessionID, budget time.Duration) {
	deadline := time.Now().Add(budget)
	for time.Now().Before(deadline) {
		infos, err := reg.List(ctx)
		if err != nil {
			return
		}
		for _, info := range infos {
			if info.ID == id && info.Status.Terminal() {
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// buildRegistry loads config, applies a CLI backend override, and builds
// the session registry.
func buildRegistry(ctx context.Context, cfgPath, backendOverride string) (*core.Registry, error) {
	cfg, err := appconfig.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if backendOverride != "" {
		cfg.Engine.Backend = backendOverride
	}
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}
	return core.NewRegistry(engineCfg, core.RegistryDeps{Logger: logx.Ctx(ctx)})
}
