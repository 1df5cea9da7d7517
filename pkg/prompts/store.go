package prompts

import (
	"embed"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

//go:embed defaults/*.md
var bundled embed.FS

// Loader returns the template text for a document type, or "" when none is configured.
type Loader interface {
	Load(name string) (template string)
}

// Store loads prompt templates from an external directory, falling back to the bundled defaults.
type Store struct {
	externalDir string
	bundled     fs.FS
	logger      *slog.Logger
}

// NewStore creates a template store. An empty externalDir uses the bundled defaults only.
func NewStore(externalDir string, logger *slog.Logger) (store *Store) {
	if logger == nil {
		logger = slog.Default()
	}

	sub, err := fs.Sub(bundled, "defaults")
	if err != nil {
		// embed paths are fixed at compile time
		panic(err)
	}

	store = &Store{
		externalDir: externalDir,
		bundled:     sub,
		logger:      logger,
	}
	return store
}

// Load returns the template named name, or "" when neither location has it.
func (s *Store) Load(name string) (template string) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		s.logger.Error("prompt name cannot be empty")
		return template
	}

	fileName := key + ".md"

	// External directory wins when configured
	if s.externalDir != "" {
		text, err := readExternal(s.externalDir, fileName)
		if err == nil {
			s.logger.Debug("loaded prompt from external directory", slog.String("path", filepath.Join(s.externalDir, fileName)))
			template = text
			return template
		}
		s.logger.Debug("external prompt unavailable", slog.String("name", fileName), slog.Any("error", err))
	}

	data, err := fs.ReadFile(s.bundled, fileName)
	if err == nil {
		s.logger.Debug("loaded bundled prompt", slog.String("name", fileName))
		template = string(data)
		return template
	}

	s.logger.Error("could not load prompt", slog.String("name", fileName))
	return template
}

// Names lists the bundled template keys.
func (s *Store) Names() (names []string) {
	entries, err := fs.ReadDir(s.bundled, ".")
	if err != nil {
		return names
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".md"))
	}
	return names
}

// readExternal reads a regular file from dir.
func readExternal(dir, fileName string) (text string, err error) {
	path := filepath.Join(dir, fileName)

	var info os.FileInfo
	info, err = os.Stat(path)
	if err != nil {
		err = errors.Wrapf(err, "failed to stat prompt file: %s", path)
		return text, err
	}

	if !info.Mode().IsRegular() {
		err = errors.Errorf("prompt path is not a regular file: %s", path)
		return text, err
	}

	var data []byte
	data, err = os.ReadFile(path)
	if err != nil {
		err = errors.Wrapf(err, "failed to read prompt file: %s", path)
		return text, err
	}

	text = string(data)
	return text, err
}
