package docgen

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// OfficeConverter converts the Word package with a headless LibreOffice.
type OfficeConverter struct {
	bin string
	log *zap.Logger
}

// NewOfficeConverter uses bin, or "soffice" from PATH when empty.
func NewOfficeConverter(bin string, log *zap.Logger) *OfficeConverter {
	if bin == "" {
		bin = "soffice"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OfficeConverter{bin: bin, log: log}
}

func (c *OfficeConverter) Convert(ctx context.Context, _ *Document, docxPath, pdfPath string) error {
	if _, err := exec.LookPath(c.bin); err != nil {
		return fmt.Errorf("%w: %s not found: %v", ErrConversion, c.bin, err)
	}

	outDir := filepath.Dir(pdfPath)

	// Each call gets its own profile so parallel conversions don't fight over the lock file.
	profile, err := os.MkdirTemp(outDir, "office-profile-")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConversion, err)
	}
	defer os.RemoveAll(profile)

	profileURL := "file://" + filepath.ToSlash(profile)
	if !strings.HasPrefix(filepath.ToSlash(profile), "/") {
		profileURL = "file:///" + filepath.ToSlash(profile)
	}

	cmd := exec.CommandContext(ctx, c.bin,
		"-env:UserInstallation="+profileURL,
		"--headless",
		"--norestore",
		"--convert-to", "pdf",
		"--outdir", outDir,
		docxPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		c.log.Error("soffice failed", zap.String("output", string(output)), zap.Error(err))
		return fmt.Errorf("%w: soffice: %v", ErrConversion, err)
	}

	produced := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(docxPath), filepath.Ext(docxPath))+".pdf")
	if _, err := os.Stat(produced); err != nil {
		c.log.Error("soffice produced no output", zap.String("output", string(output)))
		return fmt.Errorf("%w: no PDF written for %s", ErrConversion, filepath.Base(docxPath))
	}
	if produced != pdfPath {
		if err := os.Rename(produced, pdfPath); err != nil {
			os.Remove(produced)
			return fmt.Errorf("%w: %v", ErrConversion, err)
		}
	}
	return nil
}
