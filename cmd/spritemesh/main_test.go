package main

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-extrude/internal/logger"
)

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// isolate points config lookup at an empty temp dir and restores the global
// logger afterwards. It returns a config file path for -config.
func isolate(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Cleanup(func() {
		logger.Log = zap.NewNop()
		logger.Sugar = logger.Log.Sugar()
	})

	cfgPath = filepath.Join(dir, "extrude.yaml")
	if err := os.WriteFile(cfgPath, []byte("logging:\n  level: info\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return dir, cfgPath
}

func TestBatchFailureReturnsError(t *testing.T) {
	dir, cfgPath := isolate(t)
	input := filepath.Join(dir, "blank.png")
	writePNG(t, input, image.NewNRGBA(image.Rect(0, 0, 4, 4)))
	out := filepath.Join(dir, "out")
	logFile := filepath.Join(dir, "batch.log")

	err := cmdBatch([]string{
		"-config", cfgPath,
		"-o", out,
		"-workers", "1",
		"-preview=false",
		"-log-file", logFile,
		input,
	})
	if err == nil {
		t.Fatal("expected an error for a batch with failed jobs")
	}
	if !strings.Contains(err.Error(), "1 failed") {
		t.Errorf("error = %q, want the failed count", err)
	}

	if _, err := os.Stat(filepath.Join(out, "manifest.json")); err != nil {
		t.Errorf("manifest not written: %v", err)
	}
	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "batch starting") {
		t.Errorf("log file missing batch entries:\n%s", data)
	}
}

func TestBatchSuccessReturnsNil(t *testing.T) {
	dir, cfgPath := isolate(t)
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	input := filepath.Join(dir, "solid.png")
	writePNG(t, input, img)
	out := filepath.Join(dir, "out")

	if err := cmdBatch([]string{"-config", cfgPath, "-o", out, "-workers", "1", "-preview=false", input}); err != nil {
		t.Fatalf("cmdBatch: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "solid.obj")); err != nil {
		t.Errorf("mesh not written: %v", err)
	}
}
