// =============================================================================
// Invoice COGS Extractor - Serve Command
// =============================================================================
//
// COMMAND USAGE:
//   cogs serve [--addr :8080]
//
// The server runs until interrupted, then finishes in-flight requests.
//
// =============================================================================

package cmd

import (
	"github.com/ginjaninja78/invoice-cogs-extractor/internal/server"
	"github.com/ginjaninja78/invoice-cogs-extractor/internal/validation"
	"github.com/ginjaninja78/invoice-cogs-extractor/internal/xlsxwriter"
	"github.com/ginjaninja78/invoice-cogs-extractor/pkg/utils"
	"github.com/spf13/cobra"
)

var addr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the upload web server",
	Long: `The serve command starts a web server with a single upload page. Each
POST converts the uploaded PDFs and answers with the workbook as a download.
Uploaded files are staged in upload_dir and removed after every request.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if addr != "" {
			cfg.Server.Addr = addr
		}
		logger := newLogger(cfg)

		files := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.UploadDir)
		if err := files.EnsureDirectories(); err != nil {
			return err
		}

		asm, rules, err := newPipeline(cfg, logger)
		if err != nil {
			return err
		}

		srv := server.New(asm, files, server.Options{
			Addr:             cfg.Server.Addr,
			MaxUploadBytes:   cfg.Server.MaxUploadMB << 20,
			OutputNameFormat: cfg.OutputNameFormat,
			Workbook:         xlsxwriter.Options{Formulas: cfg.Formulas(), Tolerance: rules.Tolerance()},
			Validation:       validation.DefaultOptions(),
		}, logger)

		return srv.ListenAndServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
}
