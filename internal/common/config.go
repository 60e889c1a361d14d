package common

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Paths  PathsConfig  `yaml:"paths"`
	Tools  ToolsConfig  `yaml:"tools"`
	Crop   CropConfig   `yaml:"crop"`
	Raster RasterConfig `yaml:"raster"`
	OCR    OCRConfig    `yaml:"ocr"`
	Store  StoreConfig  `yaml:"store"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// PathsConfig holds the staging directories and the master ordering source.
type PathsConfig struct {
	WorkDir    string `yaml:"work_dir"`
	Input      string `yaml:"input"`
	Combined   string `yaml:"combined"`
	Cropped    string `yaml:"cropped"`
	Rasterized string `yaml:"rasterized"`
	Dataset    string `yaml:"dataset"`
	Output     string `yaml:"output"`
	Master     string `yaml:"master"`

	// MasterSheet picks the worksheet of an XLSX master; empty means the first.
	MasterSheet string `yaml:"master_sheet"`
}

// ToolsConfig names the external binaries.
type ToolsConfig struct {
	Pdftoppm  string        `yaml:"pdftoppm"`
	Tesseract string        `yaml:"tesseract"`
	Timeout   time.Duration `yaml:"timeout"`
}

// CropConfig holds region cropper configuration
type CropConfig struct {
	Strategy      string     `yaml:"strategy"` // expanded | narrow | custom
	CenterOrigin  [4]float64 `yaml:"center_origin"`
	ZeroOrigin    [4]float64 `yaml:"zero_origin"`
	FlattenDPI    int        `yaml:"flatten_dpi"`
	ProbeRender   bool       `yaml:"probe_render"`
	KeepFlattened bool       `yaml:"keep_flattened"`
}

// RasterConfig holds rasterizer configuration
type RasterConfig struct {
	DPI     int `yaml:"dpi"`
	Quality int `yaml:"quality"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine      string         `yaml:"engine"` // tesseract | gosseract | documentai
	Language    string         `yaml:"language"`
	PSM         int            `yaml:"psm"`
	TessdataDir string         `yaml:"tessdata_dir"`
	DPI         int            `yaml:"dpi"`
	Preprocess  bool           `yaml:"preprocess"`
	MinSide     int            `yaml:"min_side"`
	DocumentAI  DocumentAIConf `yaml:"documentai"`
}

// DocumentAIConf identifies a Google Document AI OCR processor.
type DocumentAIConf struct {
	ProjectID       string `yaml:"project_id"`
	Location        string `yaml:"location"`
	ProcessorID     string `yaml:"processor_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

// StoreConfig holds index store configuration
type StoreConfig struct {
	Driver          string        `yaml:"driver"` // sqlite | postgres | none
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// ServerConfig holds daemon configuration
type ServerConfig struct {
	GRPCAddr   string        `yaml:"grpc_addr"`
	Watch      bool          `yaml:"watch"`
	Debounce   time.Duration `yaml:"debounce"`
	QueueSize  int           `yaml:"queue_size"`
	RunTimeout time.Duration `yaml:"run_timeout"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // json | text
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

const defaultWorkDir = "_workingdata_"

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	cfg := &Config{
		Tools: ToolsConfig{
			Pdftoppm:  "pdftoppm",
			Tesseract: "tesseract",
			Timeout:   2 * time.Minute,
		},
		Crop: CropConfig{
			Strategy:    "expanded",
			FlattenDPI:  300,
			ProbeRender: true,
		},
		Raster: RasterConfig{DPI: 300, Quality: 75},
		OCR: OCRConfig{
			Engine:     "tesseract",
			Language:   "eng",
			PSM:        11,
			DPI:        300,
			Preprocess: true,
			MinSide:    300,
			DocumentAI: DocumentAIConf{Location: "us"},
		},
		Store: StoreConfig{
			Driver:          "sqlite",
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{
			GRPCAddr:   ":8080",
			Debounce:   2 * time.Second,
			QueueSize:  16,
			RunTimeout: 2 * time.Hour,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
	}
	cfg.Paths.SetWorkDir(defaultWorkDir)
	return cfg
}

// SetWorkDir points every staging directory below root.
func (p *PathsConfig) SetWorkDir(root string) {
	p.WorkDir = root
	p.Input = filepath.Join(root, "input")
	p.Combined = filepath.Join(root, "combined")
	p.Cropped = filepath.Join(root, "cropped")
	p.Rasterized = filepath.Join(root, "rasterized")
	p.Dataset = filepath.Join(root, "dataset")
	p.Output = filepath.Join(root, "output")
}

// StagingDirs returns every staging directory in pipeline order.
func (p PathsConfig) StagingDirs() []string {
	return []string{p.Input, p.Combined, p.Cropped, p.Rasterized, p.Dataset, p.Output}
}

// LoadDotEnv loads .env files into the process environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return WrapError(err, "load .env")
	}
	return nil
}

// LoadConfig builds configuration from defaults, an optional YAML file
// (PDFSORTER_CONFIG or path) and environment variables, in that order.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = os.Getenv("PDFSORTER_CONFIG")
	}
	if path != "" {
		if err := LoadConfigFile(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(c *Config) {
	if root := os.Getenv("WORK_DIR"); root != "" {
		c.Paths.SetWorkDir(root)
	}
	c.Paths.Input = getEnv("INPUT_DIR", c.Paths.Input)
	c.Paths.Combined = getEnv("COMBINED_DIR", c.Paths.Combined)
	c.Paths.Cropped = getEnv("CROPPED_DIR", c.Paths.Cropped)
	c.Paths.Rasterized = getEnv("RASTERIZED_DIR", c.Paths.Rasterized)
	c.Paths.Dataset = getEnv("DATASET_DIR", c.Paths.Dataset)
	c.Paths.Output = getEnv("OUTPUT_DIR", c.Paths.Output)
	c.Paths.Master = getEnv("MASTER_PATH", c.Paths.Master)
	c.Paths.MasterSheet = getEnv("MASTER_SHEET", c.Paths.MasterSheet)

	c.Tools.Pdftoppm = getEnv("PDFTOPPM_BIN", c.Tools.Pdftoppm)
	c.Tools.Tesseract = getEnv("TESSERACT_BIN", c.Tools.Tesseract)
	c.Tools.Timeout = getEnvAsDuration("TOOL_TIMEOUT", c.Tools.Timeout)

	c.Crop.Strategy = getEnv("CROP_STRATEGY", c.Crop.Strategy)
	c.Crop.FlattenDPI = getEnvAsInt("FLATTEN_DPI", c.Crop.FlattenDPI)
	c.Crop.ProbeRender = getEnvAsBool("CROP_PROBE_RENDER", c.Crop.ProbeRender)
	c.Crop.KeepFlattened = getEnvAsBool("CROP_KEEP_FLATTENED", c.Crop.KeepFlattened)

	c.Raster.DPI = getEnvAsInt("RASTER_DPI", c.Raster.DPI)
	c.Raster.Quality = getEnvAsInt("RASTER_JPEG_QUALITY", c.Raster.Quality)

	c.OCR.Engine = getEnv("OCR_ENGINE", c.OCR.Engine)
	c.OCR.Language = getEnv("OCR_LANG", c.OCR.Language)
	c.OCR.PSM = getEnvAsInt("OCR_PSM", c.OCR.PSM)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.DPI = getEnvAsInt("OCR_DPI", c.OCR.DPI)
	c.OCR.Preprocess = getEnvAsBool("OCR_PREPROCESS", c.OCR.Preprocess)
	c.OCR.MinSide = getEnvAsInt("OCR_MIN_SIDE", c.OCR.MinSide)
	c.OCR.DocumentAI.ProjectID = getEnv("DOCAI_PROJECT_ID", c.OCR.DocumentAI.ProjectID)
	c.OCR.DocumentAI.Location = getEnv("DOCAI_LOCATION", c.OCR.DocumentAI.Location)
	c.OCR.DocumentAI.ProcessorID = getEnv("DOCAI_PROCESSOR_ID", c.OCR.DocumentAI.ProcessorID)
	c.OCR.DocumentAI.CredentialsFile = getEnv("GOOGLE_APPLICATION_CREDENTIALS", c.OCR.DocumentAI.CredentialsFile)

	c.Store.Driver = getEnv("STORE_DRIVER", c.Store.Driver)
	c.Store.DSN = getEnv("DB_URL", c.Store.DSN)
	c.Store.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Store.MaxConns)
	c.Store.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Store.MinConns)
	c.Store.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Store.MaxConnLifetime)
	c.Store.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Store.MaxConnIdleTime)
	c.Store.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Store.DialTimeout)
	if c.Store.Driver == "sqlite" && c.Store.DSN == "" {
		c.Store.DSN = filepath.Join(c.Paths.WorkDir, "index.db")
	}

	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.Watch = getEnvAsBool("WATCH_INPUT", c.Server.Watch)
	c.Server.Debounce = getEnvAsDuration("WATCH_DEBOUNCE", c.Server.Debounce)
	c.Server.QueueSize = getEnvAsInt("QUEUE_SIZE", c.Server.QueueSize)
	c.Server.RunTimeout = getEnvAsDuration("RUN_TIMEOUT", c.Server.RunTimeout)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	c.Log.File = getEnv("LOG_FILE", c.Log.File)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("paths.input", c.Paths.Input, Required)
	v.Field("paths.output", c.Paths.Output, Required)
	v.Field("tools.pdftoppm", c.Tools.Pdftoppm, Required)
	v.Field("crop.strategy", c.Crop.Strategy, OneOf("expanded", "narrow", "custom"))
	v.Field("crop.flatten_dpi", c.Crop.FlattenDPI, IntRange(36, 1200))
	v.Field("raster.dpi", c.Raster.DPI, IntRange(36, 1200))
	v.Field("raster.quality", c.Raster.Quality, IntRange(1, 100))
	v.Field("ocr.engine", c.OCR.Engine, OneOf("tesseract", "gosseract", "documentai"))
	v.Field("ocr.dpi", c.OCR.DPI, IntRange(36, 1200))
	v.Field("store.driver", c.Store.Driver, OneOf("sqlite", "postgres", "none"))
	v.Field("log.format", c.Log.Format, OneOf("json", "text"))
	if c.Crop.Strategy == "custom" {
		v.Field("crop.center_origin", c.Crop.CenterOrigin, Fractions)
		v.Field("crop.zero_origin", c.Crop.ZeroOrigin, Fractions)
	}
	if c.OCR.Engine == "documentai" {
		v.Field("ocr.documentai.project_id", c.OCR.DocumentAI.ProjectID, Required)
		v.Field("ocr.documentai.location", c.OCR.DocumentAI.Location, Required)
		v.Field("ocr.documentai.processor_id", c.OCR.DocumentAI.ProcessorID, Required)
	}
	if c.Store.Driver != "none" {
		v.Field("store.dsn", c.Store.DSN, Required)
	}
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
