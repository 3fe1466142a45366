package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/user/bedrockchat/internal/budget"
	"github.com/user/bedrockchat/internal/delivery"
	"github.com/user/bedrockchat/internal/gateway"
	"github.com/user/bedrockchat/internal/httpapi"
	"github.com/user/bedrockchat/internal/scheduler"
	"github.com/user/bedrockchat/internal/state"
	"github.com/user/bedrockchat/internal/telegram"
	"github.com/user/bedrockchat/internal/trace"
	"github.com/user/bedrockchat/internal/types"
	"github.com/user/bedrockchat/pkg/agent/bedrockrt"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bedrockchat daemon",
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, "bedrockchat.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if cfg.Agent.ID == "" {
		return fmt.Errorf("agent id not configured (set agent.id or BEDROCK_AGENT_ID)")
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// Write PID file
	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	// Stores
	sessions := state.NewSessionStore(cfg.DataDir)
	transcripts := state.NewTranscriptStore(cfg.DataDir)

	// Agent-runtime provider
	provider := bedrockrt.New(&bedrockrt.Config{
		BaseURL: cfg.Agent.BaseURL,
		APIKey:  cfg.Agent.APIKey,
	})

	// Prompt budget guard
	guard, err := budget.New(cfg.Agent.Model, cfg.Agent.MaxInputTokens)
	if err != nil {
		return fmt.Errorf("create budget guard: %w", err)
	}

	// Gateway
	gw := gateway.New(gateway.Config{
		AgentID:      cfg.Agent.ID,
		AgentAliasID: cfg.Agent.AliasID,
		AgentName:    cfg.Agent.ID,
	}, sessions, transcripts, provider, guard, int64(cfg.MaxConcurrent))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw.Start(ctx)
	defer gw.Stop()

	slog.Info("bedrockchat started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"max_concurrent", cfg.MaxConcurrent,
		"agent_id", cfg.Agent.ID,
		"agent_alias_id", cfg.Agent.AliasID,
		"pid_file", pidPath,
	)

	// Delivery registry
	deliveryReg := delivery.NewRegistry()

	// Telegram adapter
	if cfg.Telegram.Token != "" {
		adapter, err := telegram.New(cfg.Telegram.Token, gw, sessions, transcripts)
		if err != nil {
			return fmt.Errorf("create telegram adapter: %w", err)
		}
		go adapter.Start(ctx)
		slog.Info("telegram adapter started")

		deliveryReg.Register("telegram:", func(sessionKey types.SessionKey, message string) error {
			return adapter.SendTo(string(sessionKey), message)
		})
	} else {
		slog.Warn("telegram adapter disabled (no token)")
	}

	// Helper: synchronously process a chat turn through the gateway and
	// return the processed reply.
	processChat := func(sessionKey, prompt string) (string, error) {
		done := make(chan string, 1)
		fail := make(chan error, 1)
		inbound := &types.InboundPrompt{
			Source:     "http",
			SessionKey: types.SessionKey(sessionKey),
			UserID:     "api",
			Text:       prompt,
		}
		err := gw.HandleInbound(ctx, inbound,
			gateway.WithOnComplete(func(reply string) { done <- reply }),
			gateway.WithOnError(func(err error) { fail <- err }),
		)
		if err != nil {
			return "", err
		}
		select {
		case reply := <-done:
			return reply, nil
		case err := <-fail:
			return "", err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	// Idle session sweeper. Archived sessions lose their live state and
	// the surface gets a heads-up where a delivery route exists.
	idleTTL := time.Duration(cfg.Session.IdleTTLHours) * time.Hour
	sweeper := scheduler.New(sessions, cfg.Session.SweepSchedule, idleTTL, func(id types.SessionID) {
		gw.DropLive(id)
		idx, err := sessions.Get(ctx, id)
		if err != nil {
			return
		}
		notice := "This conversation was archived after inactivity. Your next message starts a fresh session."
		if err := deliveryReg.Deliver(idx.SessionKey, notice); err != nil {
			slog.Debug("archive notice not delivered", "session_key", idx.SessionKey, "error", err)
		}
	})
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("start idle sweeper: %w", err)
	}
	defer sweeper.Stop()

	// HTTP API server
	if cfg.HTTP.Enabled {
		apiSrv := httpapi.NewServer(
			processChat,
			func(sessionKey string) error {
				return gw.Reset(ctx, types.SessionKey(sessionKey))
			},
			func(sessionKey string) (*trace.Summary, error) {
				sess, err := gw.Session(ctx, types.SessionKey(sessionKey))
				if err != nil {
					return nil, err
				}
				return sess.Trace(), nil
			},
			sessions, transcripts,
		)
		httpServer := &http.Server{
			Addr:    cfg.HTTP.Listen,
			Handler: apiSrv,
		}
		go func() {
			slog.Info("http api server started", "listen", cfg.HTTP.Listen)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("http api server error", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			httpServer.Close()
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		if sig == syscall.SIGHUP {
			slog.Info("received SIGHUP, restarting")
			execPath, err := os.Executable()
			if err != nil {
				slog.Error("failed to get executable path", "error", err)
				continue
			}
			// Clean up PID file before re-exec
			os.Remove(pidPath)
			if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
				slog.Error("failed to re-exec", "error", err)
				if _, writeErr := writePIDFile(cfg.DataDir); writeErr != nil {
					slog.Error("failed to re-write PID file", "error", writeErr)
				}
				continue
			}
		}
		// SIGINT or SIGTERM
		slog.Info("shutting down", "signal", sig)
		return nil
	}
}
