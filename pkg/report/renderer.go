package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/seo-auditor/pkg/models"
	"github.com/Sriram-PR/seo-auditor/pkg/utils"
)

// Renderer turns a finished run into report artifacts and returns their file names
type Renderer interface {
	Render(ctx context.Context, run *models.AnalysisRun) (models.ReportFiles, error)
}

// FileRenderer writes <prefix>.csv, <prefix>.json and <prefix>.html into a directory
type FileRenderer struct {
	dir string
	now func() time.Time
	log *logrus.Entry
}

// NewFileRenderer creates a FileRenderer writing into dir
func NewFileRenderer(dir string, log *logrus.Entry) *FileRenderer {
	return &FileRenderer{
		dir: dir,
		now: time.Now,
		log: log.WithField("component", "report_renderer"),
	}
}

// Dir returns the output directory
func (r *FileRenderer) Dir() string { return r.dir }

// Render implements Renderer. The returned names are relative to Dir.
func (r *FileRenderer) Render(ctx context.Context, run *models.AnalysisRun) (models.ReportFiles, error) {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return models.ReportFiles{}, fmt.Errorf("%w: creating report directory %s: %w", utils.ErrFilesystem, r.dir, err)
	}

	prefix := models.ReportPrefix(utils.SanitizeFilename(run.Domain), r.now())
	files := models.ReportFiles{
		CSV:  prefix + ".csv",
		JSON: prefix + ".json",
		HTML: prefix + ".html",
	}

	writers := []struct {
		name  string
		write func(*os.File, *models.AnalysisRun) error
	}{
		{files.CSV, writeCSV},
		{files.JSON, writeJSON},
		{files.HTML, writeHTML},
	}
	for _, w := range writers {
		if err := ctx.Err(); err != nil {
			return models.ReportFiles{}, err
		}
		if err := r.writeFile(w.name, run, w.write); err != nil {
			return models.ReportFiles{}, err
		}
	}

	r.log.WithFields(logrus.Fields{"run_id": run.ID, "prefix": prefix, "pages": len(run.Pages)}).Info("Reports written")
	return files, nil
}

func (r *FileRenderer) writeFile(name string, run *models.AnalysisRun, write func(*os.File, *models.AnalysisRun) error) error {
	path := filepath.Join(r.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %w", utils.ErrFilesystem, path, err)
	}
	if err := write(f, run); err != nil {
		f.Close()
		return fmt.Errorf("%w: %s: %w", utils.ErrReportRender, name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %w", utils.ErrFilesystem, path, err)
	}
	return nil
}

var csvHeader = []string{
	"URL", "Language", "HTTP Status", "Title", "Title Length", "Description", "Description Length",
	"Keywords", "OG Title", "OG Description", "OG Image", "OG Image Status", "Canonical URL",
	"H1 Count", "H1 Text", "Images Without ALT", "Robots", "SEO Score", "SEO Issues", "Hreflang",
}

func writeCSV(f *os.File, run *models.AnalysisRun) error {
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, p := range run.Pages {
		hreflang := ""
		if len(p.Hreflang) > 0 {
			b, err := json.Marshal(p.Hreflang)
			if err != nil {
				return err
			}
			hreflang = string(b)
		}
		record := []string{
			p.URL,
			p.Language,
			strconv.Itoa(p.StatusCode),
			p.Title,
			strconv.Itoa(utf8.RuneCountInString(p.Title)),
			p.Description,
			strconv.Itoa(utf8.RuneCountInString(p.Description)),
			p.Keywords,
			p.OGTitle,
			p.OGDescription,
			p.OGImage,
			string(p.OGImageStatus),
			p.Canonical,
			strconv.Itoa(p.H1Count),
			p.H1Text,
			strconv.Itoa(p.ImagesWithoutAlt),
			p.Robots,
			strconv.Itoa(p.Score),
			strings.Join(p.Issues, "; "),
			hreflang,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeJSON(f *os.File, run *models.AnalysisRun) error {
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}
