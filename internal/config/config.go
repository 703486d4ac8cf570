// Package config loads service settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/abhisek/coursemate/internal/adaptive"
	"github.com/abhisek/coursemate/internal/analytics"
	"github.com/abhisek/coursemate/internal/chunking"
	"github.com/abhisek/coursemate/internal/quiz"
	"github.com/abhisek/coursemate/internal/retrieval"
	"github.com/abhisek/coursemate/internal/store"
	"github.com/abhisek/coursemate/internal/summary"
)

// Duration is a time.Duration written as a string such as "90s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the full service configuration.
type Config struct {
	Server    Server    `toml:"server"`
	Storage   Storage   `toml:"storage"`
	Retrieval Retrieval `toml:"retrieval"`
	Quiz      Quiz      `toml:"quiz"`
	Summary   Summary   `toml:"summary"`
	Analytics Analytics `toml:"analytics"`
}

type Server struct {
	Addr           string   `toml:"addr"`
	RequestTimeout Duration `toml:"request_timeout"`
	CORSOrigins    []string `toml:"cors_origins"`
}

type Storage struct {
	Driver    string `toml:"driver"`
	DSN       string `toml:"dsn"`
	UploadDir string `toml:"upload_dir"`
}

type Retrieval struct {
	ChunkSize    int `toml:"chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap"`
	CandidateCap int `toml:"candidate_cap"`
	WorkingSet   int `toml:"working_set"`
}

type Quiz struct {
	DefaultCount        int `toml:"default_count"`
	MaterialCap         int `toml:"material_cap"`
	AdaptiveMaterialCap int `toml:"adaptive_material_cap"`
	MissedSample        int `toml:"missed_sample"`
	MaxAttempts         int `toml:"max_attempts"`
}

type Summary struct {
	MaterialCap int `toml:"material_cap"`
}

type Analytics struct {
	HalfLife float64 `toml:"half_life"`
}

// Default returns the built-in configuration.
func Default() Config {
	q := quiz.DefaultConfig()
	return Config{
		Server: Server{
			Addr:           ":8000",
			RequestTimeout: Duration{120 * time.Second},
			CORSOrigins:    []string{"http://localhost:5173"},
		},
		Storage: Storage{
			Driver:    store.DriverSQLite,
			UploadDir: "uploads",
		},
		Retrieval: Retrieval{
			ChunkSize:    chunking.DefaultSize,
			ChunkOverlap: chunking.DefaultOverlap,
			CandidateCap: retrieval.DefaultCandidateCap,
			WorkingSet:   retrieval.DefaultWorkingSet,
		},
		Quiz: Quiz{
			DefaultCount:        q.DefaultCount,
			MaterialCap:         q.MaterialCap,
			AdaptiveMaterialCap: adaptive.DefaultMaterialCap,
			MissedSample:        adaptive.DefaultMissedSample,
			MaxAttempts:         q.MaxAttempts,
		},
		Summary:   Summary{MaterialCap: summary.DefaultMaterialCap},
		Analytics: Analytics{HalfLife: analytics.DefaultHalfLife},
	}
}

// Load reads path over the defaults. A missing file is not an error when
// the path was not given explicitly.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = "coursemate.toml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// LoadEnv loads .env files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case store.DriverSQLite, store.DriverPostgres:
	default:
		return fmt.Errorf("storage.driver: unsupported %q", c.Storage.Driver)
	}
	if c.Storage.Driver == store.DriverPostgres && c.Storage.DSN == "" {
		return errors.New("storage.dsn is required for postgres")
	}
	if _, err := chunking.New(c.Retrieval.ChunkSize, c.Retrieval.ChunkOverlap); err != nil {
		return fmt.Errorf("retrieval: %w", err)
	}
	if c.Server.RequestTimeout.Duration < 0 {
		return errors.New("server.request_timeout must not be negative")
	}
	if c.Analytics.HalfLife < 0 {
		return errors.New("analytics.half_life must not be negative")
	}
	return nil
}

// Splitter builds the chunker described by the retrieval section.
func (c Config) Splitter() (*chunking.Splitter, error) {
	return chunking.New(c.Retrieval.ChunkSize, c.Retrieval.ChunkOverlap)
}

// RetrievalConfig maps the retrieval section.
func (c Config) RetrievalConfig() retrieval.Config {
	return retrieval.Config{CandidateCap: c.Retrieval.CandidateCap, WorkingSet: c.Retrieval.WorkingSet}
}

// QuizConfig maps the quiz section onto the generator defaults.
func (c Config) QuizConfig() quiz.Config {
	q := quiz.DefaultConfig()
	q.DefaultCount = c.Quiz.DefaultCount
	q.MaterialCap = c.Quiz.MaterialCap
	q.MaxAttempts = c.Quiz.MaxAttempts
	return q
}

// AdaptiveConfig maps the adaptive settings of the quiz section.
func (c Config) AdaptiveConfig() adaptive.Config {
	return adaptive.Config{MissedSample: c.Quiz.MissedSample, MaterialCap: c.Quiz.AdaptiveMaterialCap}
}
