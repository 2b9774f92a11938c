package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/layerstage/internal/asset"
	"github.com/specialistvlad/layerstage/internal/manifest"
	"github.com/specialistvlad/layerstage/internal/model"
	"github.com/specialistvlad/layerstage/internal/report"
	"github.com/specialistvlad/layerstage/internal/testutil"
)

// layerFixture lays out a staging root with an installed numpy built for
// cp312 and a manifest that targets cp311.
func layerFixture(t *testing.T, baseURL string) (stagingRoot, manifestPath string) {
	t.Helper()
	stagingRoot = testutil.WriteTree(t, map[string]string{
		"numpy/__init__.py": "",
		"numpy/core/_multiarray_umath.cp312-x86_64-linux.so": "ELF",
	})
	hcl := testutil.LayerHCL(t, stagingRoot,
		`platform { tag = "cp311-x86_64-linux" }`,
		fmt.Sprintf(`asset_source "nltk" {
  base_url = %q
  paths    = { punkt = "punkt.txt" }
}`, baseURL),
		`dependency "nltk" {
  data_assets  = ["punkt"]
  asset_source = "nltk"
}`,
		`dependency "numpy" { native = true }`,
		`dependency "not_a_real_package" {}`,
	)
	dir := testutil.WriteTree(t, map[string]string{"layer.hcl": hcl})
	return stagingRoot, filepath.Join(dir, "layer.hcl")
}

func assetServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/punkt.txt" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "tokenizer-data")
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func fakeProber(stagingRoot string) *testutil.MockProber {
	return testutil.NewMockProber(map[string]model.ProbeResult{
		"nltk":  {Loaded: true, Version: "3.8.1", Location: filepath.Join(stagingRoot, "nltk")},
		"numpy": {Loaded: true, Version: "1.26.4", Location: filepath.Join(stagingRoot, "numpy")},
	}, nil, 0)
}

func TestApp_Run(t *testing.T) {
	srv, hits := assetServer(t)
	stagingRoot, layerPath := layerFixture(t, srv.URL)
	outDir := t.TempDir()

	cfg, err := NewConfig(Config{
		LayerPaths:  []string{layerPath},
		Output:      report.FormatJSON,
		ReportFile:  filepath.Join(outDir, "report.json"),
		MetricsFile: filepath.Join(outDir, "layerstage.prom"),
	})
	require.NoError(t, err)

	a, out, logs := SetupAppTest(t, cfg, WithProber(fakeProber(stagingRoot)))
	rep, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, rep.OK)
	assert.ElementsMatch(t, []string{
		"not_a_real_package: module not found",
		"numpy: native artifact " + filepath.ToSlash(filepath.Join(stagingRoot, "numpy", "core", "_multiarray_umath.cp312-x86_64-linux.so")) + " built for cp312-x86_64-linux",
	}, rep.Failures())

	require.Len(t, rep.Manifest.Entries, 1)
	assert.Equal(t, "/opt/python/nltk/punkt", rep.Manifest.Entries[0].RuntimePath)
	assert.Equal(t, int32(1), hits.Load())

	var printed model.PipelineReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &printed))
	assert.Equal(t, rep, printed)

	assert.FileExists(t, cfg.ReportFile)
	metricsText, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metricsText), "layerstage_run_ok 0")
	assert.Contains(t, logs.String(), "Layer manifest loaded.")
	assert.Contains(t, logs.String(), "Platform tag names Linux without a libc suffix")

	stored, err := manifest.Load(stagingRoot)
	require.NoError(t, err)
	_, ok := stored.Lookup("punkt")
	assert.True(t, ok, "staging manifest is persisted")

	t.Run("second run fetches nothing", func(t *testing.T) {
		a, _, _ := SetupAppTest(t, cfg, WithProber(fakeProber(stagingRoot)))
		again, err := a.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int32(1), hits.Load())
		assert.Equal(t, rep, again)
	})
}

func TestApp_Run_Timeout(t *testing.T) {
	srv, _ := assetServer(t)
	_, layerPath := layerFixture(t, srv.URL)

	cfg, err := NewConfig(Config{LayerPaths: []string{layerPath}, Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	slow := testutil.NewMockProber(nil, nil, 5*time.Second)
	a, out, _ := SetupAppTest(t, cfg, WithProber(slow))
	rep, err := a.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, rep.OK)
	for _, p := range rep.Probes {
		assert.Equal(t, model.ReasonCancelled, p.FailureReason)
	}
	assert.Contains(t, out.String(), "Result: FAILED")
}

func TestApp_ConfigurationErrors(t *testing.T) {
	t.Run("missing staging root", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "absent")
		dir := testutil.WriteTree(t, map[string]string{"layer.hcl": testutil.LayerHCL(t, missing)})
		cfg, err := NewConfig(Config{LayerPaths: []string{dir}})
		require.NoError(t, err)

		a, _, _ := SetupAppTest(t, cfg)
		_, err = a.Run(context.Background())
		assert.ErrorContains(t, err, "staging root")
	})

	t.Run("bad manifest", func(t *testing.T) {
		dir := testutil.WriteTree(t, map[string]string{"layer.hcl": `layer {`})
		cfg, err := NewConfig(Config{LayerPaths: []string{dir}})
		require.NoError(t, err)
		_, err = NewApp(&testutil.SafeBuffer{}, &testutil.SafeBuffer{}, cfg)
		assert.ErrorContains(t, err, "failed to load configuration")
	})

	t.Run("bad platform tag", func(t *testing.T) {
		root := t.TempDir()
		dir := testutil.WriteTree(t, map[string]string{"layer.hcl": testutil.LayerHCL(t, root, `platform { tag = "linux" }`)})
		cfg, err := NewConfig(Config{LayerPaths: []string{dir}})
		require.NoError(t, err)

		a, _, _ := SetupAppTest(t, cfg)
		_, err = a.Run(context.Background())
		assert.ErrorContains(t, err, "platform tag")
	})
}

func TestNewConfig(t *testing.T) {
	_, err := NewConfig(Config{})
	assert.Error(t, err)

	_, err = NewConfig(Config{LayerPaths: []string{"layer.hcl"}, Output: "xml"})
	assert.ErrorContains(t, err, "invalid output")

	cfg, err := NewConfig(Config{LayerPaths: []string{"layer.hcl"}})
	require.NoError(t, err)
	assert.Equal(t, report.FormatTable, cfg.Output)
}

func TestLoadEnv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("LAYERSTAGE_S3_ACCESS_KEY=from-file\nLAYERSTAGE_TEST_ONLY=file\n"), 0o600))
	t.Setenv("LAYERSTAGE_TEST_ONLY", "process")

	env, err := loadEnv(envFile)
	require.NoError(t, err)
	assert.Equal(t, "from-file", env[EnvS3AccessKey])
	assert.Equal(t, "process", env["LAYERSTAGE_TEST_ONLY"], "process environment wins")

	_, err = loadEnv(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestWithCredentials(t *testing.T) {
	env := map[string]string{
		EnvS3AccessKey: "AKIA",
		EnvS3SecretKey: "secret",
		EnvS3Region:    "eu-west-1",
		EnvS3UseSSL:    "false",
	}
	got := withCredentials(asset.SourceConfig{Name: "models", Type: asset.SourceS3, UseSSL: true}, env)
	assert.Equal(t, "AKIA", got.AccessKey)
	assert.Equal(t, "secret", got.SecretKey)
	assert.Equal(t, "eu-west-1", got.Region)
	assert.False(t, got.UseSSL)

	plain := withCredentials(asset.SourceConfig{Name: "nltk", Type: asset.SourceHTTP}, env)
	assert.Empty(t, plain.AccessKey)
}
