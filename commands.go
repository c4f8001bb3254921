package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"auto_bid_writer/config"
	"auto_bid_writer/metrics"
	"auto_bid_writer/pipeline"
	"auto_bid_writer/publisher"
	"auto_bid_writer/server"
)

var generateCmd = &cobra.Command{
	Use:   "generate [tender files...]",
	Short: "Generate bid documents for the given tender files or every file in paths.input_dir",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		if mock, _ := cmd.Flags().GetBool("mock"); mock {
			a.cfg.LLM.Provider = config.ProviderMock
		}
		p, closeStore, err := a.buildPipeline()
		if err != nil {
			return err
		}
		defer closeStore()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var items []pipeline.BatchItem
		if len(args) == 0 {
			items, err = p.RunDir(ctx, a.cfg.Paths.InputDir)
			if err != nil {
				return err
			}
		} else {
			items = p.RunBatch(ctx, args)
		}

		failed := 0
		for _, it := range items {
			if it.Err != nil {
				failed++
				fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %v\n", it.Path, it.Err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK   %s -> %s\n", it.Path, it.Result.DocxPath)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d tenders failed", failed, len(items))
		}
		return nil
	},
}

var renderCmd = &cobra.Command{
	Use:   "render <merged.md>",
	Short: "Render an existing merged markdown file to DOCX (and HTML)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		header, _ := cmd.Flags().GetString("header")
		if header == "" {
			base := filepath.Base(args[0])
			header = strings.TrimSuffix(strings.TrimSuffix(base, filepath.Ext(base)), pipeline.MergedSuffix)
		}
		res, err := a.buildPublisher().Publish(cmd.Context(), publisher.PublishParams{
			MarkdownPath: args[0],
			Header:       header,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.DocxPath)
		if res.HTMLPath != "" {
			fmt.Fprintln(cmd.OutOrStdout(), res.HTMLPath)
		}
		return nil
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview <merged.md>",
	Short: "Preview a merged markdown file in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		width, _ := cmd.Flags().GetInt("width")
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return fmt.Errorf("create renderer: %w", err)
		}
		out, err := r.Render(string(data))
		if err != nil {
			return fmt.Errorf("render preview: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP job API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		p, closeStore, err := a.buildPipeline()
		if err != nil {
			return err
		}
		defer closeStore()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv, err := server.New(p,
			server.WithLogger(a.logger),
			server.WithMetricsHandler(metrics.Handler(a.registry)),
			server.WithBaseContext(ctx),
			server.WithInputDir(a.cfg.Paths.InputDir),
		)
		if err != nil {
			return err
		}
		addr := a.cfg.Server.Addr
		if flagAddr, _ := cmd.Flags().GetString("addr"); flagAddr != "" {
			addr = flagAddr
		}
		httpSrv := &http.Server{Addr: addr, Handler: srv.Routes(), ReadHeaderTimeout: 10 * time.Second}

		errCh := make(chan error, 1)
		go func() { errCh <- httpSrv.ListenAndServe() }()
		a.logger.Info("web server started", "addr", addr)

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		srv.Wait()
		a.logger.Info("web server stopped")
		return nil
	},
}

func init() {
	generateCmd.Flags().Bool("mock", false, "use the offline mock LLM")
	renderCmd.Flags().String("header", "", "page header text (defaults to the tender name)")
	previewCmd.Flags().Int("width", 100, "word wrap width")
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
}
