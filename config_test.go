package rastvec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYaml = `
input_dir: /data/input/raster
output_dir: /data/output
extension: tiff
band_labels: ["2018", "2019", "2020"]
workers: 4
csv_encoding: gbk
log:
  level: debug
merge:
  output: /data/output/csv/merged.csv
  inputs:
    - path: /data/output/csv/a_vectorized_cleaned.csv
      fields: ["2018"]
    - path: /data/output/vector/b_points.shp
      layer: b_points
      x_field: x
      fields: ["2019"]
organize:
  source: file:///data/output
  target: s3://bucket/project
  dirs: [raw_data, processed_data/csv]
  rules:
    - pattern: "*_cleaned.csv"
      prefix: csv
      dest: processed_data/csv
  skip_existing: true
`

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigYaml), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/input/raster", cfg.InputDir)
	assert.Equal(t, filepath.Join("/data/output", "vector"), cfg.VectorDir)
	assert.Equal(t, filepath.Join("/data/output", "csv"), cfg.CsvDir)
	assert.Equal(t, ".tiff", cfg.Extension)
	assert.Equal(t, []string{"2018", "2019", "2020"}, cfg.BandLabels)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	require.Len(t, cfg.Merge.Inputs, 2)
	assert.Equal(t, "b_points", cfg.Merge.Inputs[1].Layer)
	assert.Equal(t, "x", cfg.Merge.Inputs[1].XField)
	assert.True(t, cfg.Organize.SkipExisting)
	require.Len(t, cfg.Organize.Rules, 1)
	assert.Equal(t, "csv", cfg.Organize.Rules[0].Prefix)
	assert.Equal(t, defaultScaffoldDirs, cfg.Scaffold.Dirs)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, FILE_EXT_TIF, cfg.Extension)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, SHAPE_ENCODING, cfg.CsvEncoding)
	assert.Empty(t, cfg.VectorDir)
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("workers: [1"), 0o644))
	_, err = LoadConfig(bad)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	base := func() *Config {
		c := &Config{InputDir: "in", OutputDir: "out"}
		c.ApplyDefaults()
		return c
	}
	require.NoError(t, base().Validate())

	c := base()
	c.CsvEncoding = "latin1"
	assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, c.Validate(), ErrUnknownEncoding)

	c = base()
	c.BandLabels = []string{"pixel_id"}
	assert.ErrorIs(t, c.Validate(), ErrInvalidLabel)

	c = &Config{InputDir: "in", VectorDir: "v", CsvDir: "c"}
	c.ApplyDefaults()
	require.NoError(t, c.Validate())
}

func TestNormEncoding(t *testing.T) {
	for in, want := range map[string]string{"": "UTF-8", "utf8": "UTF-8", "UTF-8": "UTF-8", "gbk": "GBK"} {
		got, err := normEncoding(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := normEncoding("big5")
	assert.ErrorIs(t, err, ErrUnknownEncoding)
}
