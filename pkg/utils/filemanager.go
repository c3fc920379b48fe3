// =============================================================================
// Invoice COGS Extractor - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the extractor:
//   - Input discovery (every PDF in the input directory)
//   - Output file naming
//   - Upload staging and cleanup for the web server
//   - Run summary generation
//
// STAGING STRATEGY:
//   - Every upload request gets its own directory under the upload directory
//   - Uploaded files keep their base name so the output tables show it
//   - The whole request directory is removed once the workbook is built,
//     whether the conversion succeeded or not
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ginjaninja78/invoice-cogs-extractor/internal/types"
	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the extractor.
type FileManager struct {
	// InputDir is scanned for PDFs when no paths are given.
	InputDir string

	// OutputDir is where workbooks and summaries are written.
	OutputDir string

	// UploadDir holds per-request staging directories.
	UploadDir string
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, outputDir, uploadDir string) *FileManager {
	return &FileManager{
		InputDir:  inputDir,
		OutputDir: outputDir,
		UploadDir: uploadDir,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all required directories if they don't exist.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.InputDir, fm.OutputDir, fm.UploadDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles scans the input directory for files matching the pattern.
//
// PARAMETERS:
//   - pattern: A glob pattern to match files (e.g., "*.pdf").
//     If empty, every file with a .pdf extension in any letter case matches.
//
// RETURNS:
//   - The matching file paths, sorted by name.
//   - An error if the directory cannot be read.
func (fm *FileManager) DiscoverInputFiles(pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*.[pP][dD][fF]"
	}

	files, err := filepath.Glob(filepath.Join(fm.InputDir, pattern))
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	// Filter out directories.
	var result []string
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			result = append(result, file)
		}
	}

	sort.Strings(result)
	return result, nil
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates a unique output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//     Placeholders:
//     {uuid}      - A random UUID
//     {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//     {date}      - Current date (YYYYMMDD)
//     {time}      - Current time (HHMMSS)
//   - ext: The required extension, e.g. ".xlsx". Any other extension in
//     format is replaced.
//
// EXAMPLE:
//
//	format: "COGS_{timestamp}.xlsx"
//	output: "COGS_20250302_143022.xlsx"
func GenerateOutputFileName(format, ext string) string {
	return generateOutputFileName(format, ext, time.Now())
}

func generateOutputFileName(format, ext string, now time.Time) string {
	if format == "" {
		format = "COGS_{timestamp}"
	}

	result := strings.NewReplacer(
		"{uuid}", uuid.New().String(),
		"{timestamp}", now.Format("20060102_150405"),
		"{date}", now.Format("20060102"),
		"{time}", now.Format("150405"),
	).Replace(format)

	if ext == "" {
		return result
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if current := filepath.Ext(result); current != "" && !strings.EqualFold(current, ext) {
		result = strings.TrimSuffix(result, current)
	}
	if !strings.EqualFold(filepath.Ext(result), ext) {
		result += ext
	}
	return result
}

// =============================================================================
// UPLOAD STAGING
// =============================================================================

// UploadBatch is the staging directory of one upload request.
type UploadBatch struct {
	// Dir is the request's staging directory.
	Dir string

	// Paths holds the staged files in upload order.
	Paths []string
}

// NewUploadBatch creates a fresh staging directory under UploadDir.
func (fm *FileManager) NewUploadBatch() (*UploadBatch, error) {
	dir := filepath.Join(fm.UploadDir, uuid.New().String())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &UploadBatch{Dir: dir}, nil
}

// Save copies r into the batch under the base name of name.
// A repeated name is suffixed with the first free position so no upload is
// overwritten.
func (b *UploadBatch) Save(name string, r io.Reader) (string, error) {
	base := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(name, `\`, "/")))
	if base == "/" || base == "." {
		base = "upload.pdf"
	}

	path := filepath.Join(b.Dir, base)
	ext := filepath.Ext(base)
	for n := len(b.Paths) + 1; exists(path); n++ {
		path = filepath.Join(b.Dir, fmt.Sprintf("%s_%d%s", strings.TrimSuffix(base, ext), n, ext))
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to stage upload: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to stage upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to stage upload: %w", err)
	}

	b.Paths = append(b.Paths, path)
	return path, nil
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Cleanup removes the staging directory and everything in it.
func (b *UploadBatch) Cleanup() error {
	if err := os.RemoveAll(b.Dir); err != nil {
		return fmt.Errorf("failed to clean upload directory: %w", err)
	}
	return nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about a processing run.
type ProcessingSummary struct {
	StartTime       time.Time
	EndTime         time.Time
	TotalFiles      int
	SuccessfulFiles int
	FailedFiles     int
	TotalLineItems  int
	TotalsExtracted int
	Mismatches      int
	OutputFiles     []string
	FailedFilesList []FailedFileInfo
}

// FailedFileInfo contains information about a failed file.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
}

// NewProcessingSummary derives the run counters from a ledger.
func NewProcessingSummary(l *types.Ledger, start, end time.Time, outputs []string) ProcessingSummary {
	s := ProcessingSummary{StartTime: start, EndTime: end, OutputFiles: outputs}
	if l == nil {
		return s
	}

	s.TotalFiles = len(l.Log)
	s.TotalLineItems = len(l.LineItems)
	for _, e := range l.Log {
		if e.Failed() {
			s.FailedFiles++
			s.FailedFilesList = append(s.FailedFilesList, FailedFileInfo{InputFile: e.File, ErrorMessage: e.Error})
		} else {
			s.SuccessfulFiles++
		}
	}
	for _, t := range l.Totals {
		if t.TotalUSD.Valid {
			s.TotalsExtracted++
		}
		if t.Match == types.MatchCheck {
			s.Mismatches++
		}
	}
	return s
}

// Format renders the summary as plain text.
func (s ProcessingSummary) Format() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Run Information:\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n"+
		"Statistics:\n"+
		"  Total Files:        %d\n"+
		"  Successful:         %d\n"+
		"  Failed:             %d\n"+
		"  Line Items:         %d\n"+
		"  Totals Extracted:   %d\n"+
		"  Totals To Check:    %d\n",
		s.StartTime.Format("2006-01-02 15:04:05"),
		s.EndTime.Format("2006-01-02 15:04:05"),
		s.EndTime.Sub(s.StartTime).Round(time.Millisecond).String(),
		s.TotalFiles,
		s.SuccessfulFiles,
		s.FailedFiles,
		s.TotalLineItems,
		s.TotalsExtracted,
		s.Mismatches))

	if len(s.OutputFiles) > 0 {
		b.WriteString("\nOutput Files:\n")
		for _, f := range s.OutputFiles {
			b.WriteString(fmt.Sprintf("  %s\n", f))
		}
	}

	if len(s.FailedFilesList) > 0 {
		b.WriteString("\nFailed Files:\n")
		for _, ff := range s.FailedFilesList {
			b.WriteString(fmt.Sprintf("  File:  %s\n", ff.InputFile))
			b.WriteString(fmt.Sprintf("  Error: %s\n", ff.ErrorMessage))
		}
	}

	return b.String()
}

// WriteSummaryLog writes a processing summary to a log file.
//
// PARAMETERS:
//   - summary: The processing summary.
//   - outputDir: The directory to write the summary file.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	timestamp := summary.EndTime.Format("20060102_150405")
	summaryPath := filepath.Join(outputDir, fmt.Sprintf("processing_summary_%s.txt", timestamp))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	writer.WriteString("Invoice COGS Extractor - Processing Summary\n" +
		"================================================================================\n\n")
	writer.WriteString(summary.Format())
	writer.WriteString("\n================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}
	return summaryPath, nil
}
