// Package render turns slide documents into ordered PNG images using
// LibreOffice for PDF conversion and pdftoppm for rasterization.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"slidecast/internal/logging"
	"slidecast/internal/services"
)

const rasterPrefix = "page"

// Config carries renderer settings resolved from application config.
type Config struct {
	SofficeBinary  string
	PdftoppmBinary string
	DPI            int
	ConvertTimeout time.Duration
}

type commandRunner func(ctx context.Context, name string, args ...string) error

// Renderer renders slide documents to canonical slide_<N>.png images.
type Renderer struct {
	cfg    Config
	logger *slog.Logger
	runner commandRunner
}

// New constructs a Renderer.
func New(cfg Config, logger *slog.Logger) *Renderer {
	r := &Renderer{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "render"),
	}
	r.runner = r.runCommand
	return r
}

// SetCommandRunner overrides command execution; used by tests.
func (r *Renderer) SetCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	if runner == nil {
		r.runner = r.runCommand
		return
	}
	r.runner = runner
}

// Render converts the document to PDF, rasterizes every page, and renames
// the output to 1-based slide_<N>.png files inside outputDir. The returned
// paths are in slide order. Conversion and rasterization failures are fatal.
func (r *Renderer) Render(ctx context.Context, documentPath, outputDir string) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, "render", "create output directory", "", err)
	}

	pdfPath, err := r.convertToPDF(ctx, documentPath, outputDir)
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.Remove(pdfPath) }()

	return r.rasterize(ctx, pdfPath, outputDir)
}

func (r *Renderer) convertToPDF(ctx context.Context, documentPath, outputDir string) (string, error) {
	convertCtx, cancel := context.WithTimeout(ctx, r.cfg.ConvertTimeout)
	defer cancel()

	err := r.runner(convertCtx, r.cfg.SofficeBinary,
		"--headless", "--invisible", "--nologo", "--nolockcheck", "--norestore",
		"--convert-to", "pdf:writer_pdf_Export",
		"--outdir", outputDir,
		documentPath,
	)
	if err != nil {
		if errors.Is(convertCtx.Err(), context.DeadlineExceeded) {
			return "", services.Wrap(services.ErrTimeout, "render", "convert to pdf",
				fmt.Sprintf("timed out after %s", r.cfg.ConvertTimeout), err)
		}
		return "", services.Wrap(services.ErrExternalTool, "render", "convert to pdf", "", err)
	}

	stem := strings.TrimSuffix(filepath.Base(documentPath), filepath.Ext(documentPath))
	pdfPath := filepath.Join(outputDir, stem+".pdf")
	info, statErr := os.Stat(pdfPath)
	if statErr != nil || info.Size() == 0 {
		return "", services.Wrap(services.ErrExternalTool, "render", "convert to pdf",
			fmt.Sprintf("no PDF produced at %s", pdfPath), statErr)
	}
	return pdfPath, nil
}

func (r *Renderer) rasterize(ctx context.Context, pdfPath, outputDir string) ([]string, error) {
	prefix := filepath.Join(outputDir, rasterPrefix)
	err := r.runner(ctx, r.cfg.PdftoppmBinary,
		"-png",
		"-r", strconv.Itoa(r.cfg.DPI),
		pdfPath,
		prefix,
	)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "render", "rasterize pdf", "", err)
	}

	produced, err := filepath.Glob(prefix + "*.png")
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "render", "collect raster output", "", err)
	}
	if len(produced) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "render", "rasterize pdf",
			"no page images produced", nil)
	}

	orderOutputs(produced)

	slidePaths := make([]string, 0, len(produced))
	for i, src := range produced {
		dst := filepath.Join(outputDir, fmt.Sprintf("slide_%d.png", i+1))
		if err := os.Rename(src, dst); err != nil {
			return nil, services.Wrap(services.ErrTransient, "render", "rename slide image", "", err)
		}
		slidePaths = append(slidePaths, dst)
	}

	r.logger.Info("rendered slides", logging.Int("count", len(slidePaths)))
	return slidePaths, nil
}

// orderOutputs sorts raster output into page order. pdftoppm numbers pages
// in the filename, so the numeric suffix is authoritative; modification time
// is the fallback for unparseable names.
func orderOutputs(paths []string) {
	numbers := make(map[string]int, len(paths))
	allNumeric := true
	for _, path := range paths {
		n, ok := pageNumber(path)
		if !ok {
			allNumeric = false
			break
		}
		numbers[path] = n
	}

	if allNumeric {
		sort.Slice(paths, func(i, j int) bool { return numbers[paths[i]] < numbers[paths[j]] })
		return
	}

	sort.Slice(paths, func(i, j int) bool {
		fi, erri := os.Stat(paths[i])
		fj, errj := os.Stat(paths[j])
		if erri != nil || errj != nil {
			return paths[i] < paths[j]
		}
		if fi.ModTime().Equal(fj.ModTime()) {
			return paths[i] < paths[j]
		}
		return fi.ModTime().Before(fj.ModTime())
	})
}

func pageNumber(path string) (int, bool) {
	base := strings.TrimSuffix(filepath.Base(path), ".png")
	idx := strings.LastIndexByte(base, '-')
	if idx < 0 || idx == len(base)-1 {
		return 0, false
	}
	n, err := strconv.Atoi(base[idx+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

func (r *Renderer) runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
