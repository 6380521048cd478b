package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"viraflow-api/internal/ai"
	"viraflow-api/internal/analytics"
	"viraflow-api/internal/config"
	"viraflow-api/internal/logging"
	"viraflow-api/internal/privacy"
	"viraflow-api/internal/server"
	"viraflow-api/internal/tasks"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.NewViper()

	var (
		cfgFile string
		envFile string
	)

	root := &cobra.Command{
		Use:          "viraflow-api",
		Short:        "Task extraction gateway in front of Gemini",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.MergeDotEnv(v, envFile); err != nil {
				return err
			}
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file, ignored when missing")
	root.Flags().String("addr", "", "listen address, overrides HTTP_ADDR/PORT")
	root.Flags().String("log-level", "", "debug, info, warn or error")
	root.Flags().Bool("no-mask", false, "send user text to the model unmasked")

	_ = v.BindPFlag("http_addr", root.Flags().Lookup("addr"))
	_ = v.BindPFlag("log_level", root.Flags().Lookup("log-level"))

	root.PreRunE = func(cmd *cobra.Command, args []string) error {
		if noMask, _ := cmd.Flags().GetBool("no-mask"); noMask {
			v.Set("mask_pii", false)
		}
		return nil
	}

	root.AddCommand(newMaskCmd(), newVersionCmd(v))
	return root
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	slog.SetDefault(log)

	prompts, err := ai.LoadRegistry(cfg.PromptsFile, map[ai.Purpose]string{
		ai.PurposeExtract:   cfg.ExtractModel,
		ai.PurposeCoach:     cfg.CoachModel,
		ai.PurposeDecompose: cfg.DecomposeModel,
	})
	if err != nil {
		return fmt.Errorf("load prompts: %w", err)
	}

	metrics := analytics.Default()
	completer := analytics.InstrumentCompleter(
		ai.NewGeminiClient(cfg.GoogleAPIKey, cfg.GeminiBaseURL, nil),
		metrics,
	)

	h := tasks.New(completer, prompts, privacy.Masker{Enabled: cfg.MaskPII}, metrics, log)

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: server.New(h, server.Options{
			Version:        cfg.AppVersion,
			MaxBodyBytes:   cfg.MaxBodyBytes,
			HTTP2Cleartext: cfg.HTTP2Cleartext,
			Metrics:        analytics.MetricsHandler(prometheus.DefaultGatherer),
			Log:            log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("API server is running",
			"addr", cfg.HTTPAddr,
			"extract_model", cfg.ExtractModel,
			"coach_model", cfg.CoachModel,
			"decompose_model", cfg.DecomposeModel,
			"mask_pii", cfg.MaskPII,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shut down signal received")

		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped", "err", err)
		return err
	}

	log.Info("shut down gracefully")
	return nil
}

// mask is a local debugging aid: shows what would leave the process.
func newMaskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mask [text]",
		Short: "Print text with emails, phone numbers and long digit runs masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				text = string(raw)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), privacy.Mask(strings.TrimRight(text, "\n")))
			return err
		},
	}
}

func newVersionCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the service version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), v.GetString("app_version"))
		},
	}
}
