package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/devlinkalmus/deploy-code-server-sub002/internal/audit"
	"github.com/devlinkalmus/deploy-code-server-sub002/internal/config"
	"github.com/devlinkalmus/deploy-code-server-sub002/internal/kernel"
	"github.com/devlinkalmus/deploy-code-server-sub002/internal/memory"
	"github.com/devlinkalmus/deploy-code-server-sub002/internal/server"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file (overlaid on env)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.LoadConfig()
	if configPath != "" {
		var err error
		cfg, err = config.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("load config file: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	store := memory.NewStore(cfg.Memory)
	trail := audit.NewTrail()
	k := kernel.New(cfg.Kernel, store, trail)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	decaySweeper := memory.NewDecaySweeper(store, cfg.Memory.DecayInterval)
	go decaySweeper.Start(ctx)
	defer decaySweeper.Stop()

	expirySweeper := kernel.NewExpirySweeper(k, time.Minute)
	go expirySweeper.Start(ctx)
	defer expirySweeper.Stop()

	srv := server.New(cfg, store, trail, k)
	addr, err := srv.Start(ctx)
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	log.Printf("JRVI dashboard API running at http://%s", addr)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Println("Shutting down gracefully...")
	cancel()
	time.Sleep(1 * time.Second)
	return nil
}
