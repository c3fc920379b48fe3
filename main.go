// =============================================================================
// Invoice COGS Extractor - Main Entry Point
// =============================================================================
//
// USAGE:
//   cogs convert [files...]   - Convert invoice PDFs into a COGS workbook
//   cogs serve                - Start the upload web server
//   cogs version              - Display the application version
//
// ARCHITECTURE:
//   - cmd/        : CLI command definitions (Cobra)
//   - internal/   : extraction pipeline, writers and web server
//   - pkg/        : shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/invoice-cogs-extractor/cmd"
)

func main() {
	cmd.Execute()
}
