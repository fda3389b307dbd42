package rastvec

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	FILE_EXT_TIF    = ".tif"
	FILE_EXT_SHP    = ".shp"
	FILE_EXT_CSV    = ".csv"
	SHAPE_ENCODING  = "UTF-8"
	GBK_ENC         = "GBK"
	SHP_DRIVER_NAME = "ESRI Shapefile"
	ENCODING_OPTION = "ENCODING=" + SHAPE_ENCODING

	SHP_FIELD_PIXEL_ID = "pixel_id"
	SHP_FIELD_X        = "x_coord"
	SHP_FIELD_Y        = "y_coord"
	SHP_FIELD_NAME_MAX = 10 // dbf字段名最大长度

	SUFFIX_POINTS      = "_points"
	SUFFIX_POLYGONS    = "_polygons"
	SUFFIX_TABLE       = "_vectorized"
	SUFFIX_TABLE_CLEAN = "_vectorized_cleaned"
	STAGING_PREFIX     = ".staging-"

	DEFAULT_VECTOR_SUBDIR = "vector"
	DEFAULT_CSV_SUBDIR    = "csv"
	DEFAULT_BAND_LABEL    = "band_%d"

	COORD_DECIMALS = 6
	NULL_PLACEHOLD = "NaN"
)

// shapefile的附属文件后缀
var shpSidecarExts = []string{".shp", ".shx", ".dbf", ".prj", ".cpg", ".qix", ".sbn", ".sbx"}

type Config struct {
	InputDir    string         `yaml:"input_dir"`
	OutputDir   string         `yaml:"output_dir"`
	VectorDir   string         `yaml:"vector_dir"` // 为空时为 output_dir/vector
	CsvDir      string         `yaml:"csv_dir"`    // 为空时为 output_dir/csv
	Extension   string         `yaml:"extension"`
	BandLabels  []string       `yaml:"band_labels"`
	Workers     int            `yaml:"workers"`
	CsvEncoding string         `yaml:"csv_encoding"`
	Log         LogConfig      `yaml:"log"`
	Merge       MergeConfig    `yaml:"merge"`
	Organize    OrganizeConfig `yaml:"organize"`
	Scaffold    ScaffoldConfig `yaml:"scaffold"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console | json
}

type MergeConfig struct {
	Inputs []MergeInput `yaml:"inputs"`
	Output string       `yaml:"output"`
}

type OrganizeConfig struct {
	Source       string         `yaml:"source"` // bucket URL, e.g. file:///data/output
	Target       string         `yaml:"target"` // bucket URL, e.g. file:///mnt/onedrive/project or s3://bucket
	Dirs         []string       `yaml:"dirs"`
	Readme       string         `yaml:"readme"` // 本地README模板路径
	Rules        []OrganizeRule `yaml:"rules"`
	SkipExisting bool           `yaml:"skip_existing"`
}

type OrganizeRule struct {
	Pattern string `yaml:"pattern"` // 源文件名glob，如 biomass_Area_*_vectorized.csv
	Prefix  string `yaml:"prefix"`  // 源bucket中的目录前缀
	Dest    string `yaml:"dest"`
}

type ScaffoldConfig struct {
	Base string   `yaml:"base"`
	Dirs []string `yaml:"dirs"`
}

var defaultScaffoldDirs = []string{
	"scripts",
	"data/input/raster",
	"data/output/raster",
	"data/output/vector/points",
	"data/output/vector/polygons",
	"data/output/csv",
	"docs",
}

// 读取yaml配置，path为空时返回默认配置
func LoadConfig(path string) (cfg *Config, err error) {
	cfg = &Config{}
	if path != "" {
		var data []byte
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	cfg.ApplyDefaults()
	return
}

func (c *Config) ApplyDefaults() {
	if c.Extension == "" {
		c.Extension = FILE_EXT_TIF
	}
	if !strings.HasPrefix(c.Extension, ".") {
		c.Extension = "." + c.Extension
	}
	if c.OutputDir != "" {
		if c.VectorDir == "" {
			c.VectorDir = filepath.Join(c.OutputDir, DEFAULT_VECTOR_SUBDIR)
		}
		if c.CsvDir == "" {
			c.CsvDir = filepath.Join(c.OutputDir, DEFAULT_CSV_SUBDIR)
		}
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.CsvEncoding == "" {
		c.CsvEncoding = SHAPE_ENCODING
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if len(c.Scaffold.Dirs) == 0 {
		c.Scaffold.Dirs = defaultScaffoldDirs
	}
}

// 校验矢量化所需配置
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("%w: input_dir is required", ErrInvalidConfig)
	}
	if c.VectorDir == "" || c.CsvDir == "" {
		return fmt.Errorf("%w: output_dir (or vector_dir and csv_dir) is required", ErrInvalidConfig)
	}
	if _, err := normEncoding(c.CsvEncoding); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if len(c.BandLabels) > 0 {
		if err := validateLabels(c.BandLabels); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

func normEncoding(enc string) (string, error) {
	switch strings.ToUpper(strings.ReplaceAll(enc, "-", "")) {
	case "", "UTF8":
		return SHAPE_ENCODING, nil
	case GBK_ENC:
		return GBK_ENC, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownEncoding, enc)
}
