package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/models"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/pipeline"
)

var ErrArtifactMissing = errors.New("model artifact missing")

const (
	SchemaFile   = "preprocess.json"
	ManifestFile = "last_run.json"
	RunLogFile   = "train_log.jsonl"
)

// ModelStore is the directory holding one pipeline per target, the schema
// descriptor, the latest run manifest and the append-only run log.
type ModelStore struct {
	dir string
}

func NewModelStore(dir string) *ModelStore {
	return &ModelStore{dir: dir}
}

func (s *ModelStore) Dir() string {
	return s.dir
}

func (s *ModelStore) Init() error {
	return os.MkdirAll(s.dir, 0o755)
}

// PipelinePath is the artifact path for a target; spaces become underscores.
func (s *ModelStore) PipelinePath(target string) string {
	return filepath.Join(s.dir, strings.ReplaceAll(target, " ", "_")+".json")
}

func (s *ModelStore) SavePipeline(p *pipeline.Pipeline) error {
	return s.writeJSON(s.PipelinePath(p.Target), p)
}

func (s *ModelStore) LoadPipeline(target string) (*pipeline.Pipeline, error) {
	var p pipeline.Pipeline
	if err := s.readJSON(s.PipelinePath(target), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ModelStore) SaveSchema(schema *pipeline.Schema) error {
	return s.writeJSON(filepath.Join(s.dir, SchemaFile), schema)
}

func (s *ModelStore) LoadSchema() (*pipeline.Schema, error) {
	var schema pipeline.Schema
	if err := s.readJSON(filepath.Join(s.dir, SchemaFile), &schema); err != nil {
		return nil, err
	}
	if schema.Preprocessor == nil {
		return nil, fmt.Errorf("%s: no preprocessor state", SchemaFile)
	}
	return &schema, nil
}

func (s *ModelStore) SaveManifest(m models.RunManifest) error {
	return s.writeJSON(filepath.Join(s.dir, ManifestFile), m)
}

func (s *ModelStore) LoadManifest() (models.RunManifest, error) {
	var m models.RunManifest
	err := s.readJSON(filepath.Join(s.dir, ManifestFile), &m)
	return m, err
}

// AppendRunLog appends the manifest as one JSON line to the run history.
func (s *ModelStore) AppendRunLog(m models.RunManifest) error {
	line, err := json.Marshal(m)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(s.dir, RunLogFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeJSON writes to a temp file in the store directory and renames it into
// place, so readers never observe a partially written artifact.
func (s *ModelStore) writeJSON(path string, v interface{}) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	tmp, err := os.CreateTemp(s.dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *ModelStore) readJSON(path string, v interface{}) error {
	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrArtifactMissing, path)
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(content, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
