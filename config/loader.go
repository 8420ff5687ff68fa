package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/minotaur-io/minotaur/errors"
	"github.com/minotaur-io/minotaur/logger"
	"github.com/minotaur-io/minotaur/settings"
)

// EnvPrefix marks the environment variables the daemon reads. The prefix
// is stripped before the key enters the settings store.
const EnvPrefix = "MINOTAUR_"

const (
	userConfigName    = ".minotaur.yaml"
	projectConfigName = "minotaur.yaml"
)

// Loader builds the layered settings store from files, environment
// variables, and caller overrides.
type Loader struct {
	fs          FileSystem
	environ     func() []string
	log         *logger.Logger
	userFile    string
	projectFile string
	envFile     string
}

// Option configures a Loader.
type Option func(*Loader)

// WithFileSystem sets a custom filesystem, used by tests.
func WithFileSystem(fs FileSystem) Option {
	return func(l *Loader) { l.fs = fs }
}

// WithEnviron sets the environment snapshot source, used by tests.
func WithEnviron(environ func() []string) Option {
	return func(l *Loader) { l.environ = environ }
}

// WithLogger sets the logger used for load-time messages.
func WithLogger(log *logger.Logger) Option {
	return func(l *Loader) { l.log = log }
}

// WithUserConfig sets an explicit user config file path.
func WithUserConfig(path string) Option {
	return func(l *Loader) { l.userFile = path }
}

// WithProjectConfig sets an explicit project config file path.
func WithProjectConfig(path string) Option {
	return func(l *Loader) { l.projectFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) Option {
	return func(l *Loader) { l.envFile = path }
}

// NewLoader creates a loader backed by the real filesystem and process
// environment unless options say otherwise.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		fs:      OSFileSystem{},
		environ: os.Environ,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = logger.GetGlobalLogger().WithComponent("config")
	}
	return l
}

// BuildSettings constructs the settings store by layering, lowest priority
// first: built-in defaults, the user config file, the project config file,
// MINOTAUR_-prefixed environment variables, and finally the caller's
// overrides at cmd priority. The returned store is frozen.
func (l *Loader) BuildSettings(overrides map[string]any) (*settings.Store, error) {
	store, err := settings.New(settings.Defaults(), settings.PriorityDefault)
	if err != nil {
		return nil, err
	}

	err = store.Unfreeze(func(s *settings.Store) error {
		if err := l.applyFile(s, l.resolveUserFile(), settings.PriorityUser); err != nil {
			return err
		}
		if err := l.applyFile(s, l.resolveProjectFile(), settings.PriorityProject); err != nil {
			return err
		}
		if err := l.applyEnv(s); err != nil {
			return err
		}
		return s.Update(normalizeKeys(overrides), settings.PriorityCmd)
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// resolveUserFile returns the user config path, or "" when there is none.
func (l *Loader) resolveUserFile() string {
	if l.userFile != "" {
		return l.userFile
	}
	home, err := l.fs.UserHomeDir()
	if err != nil {
		l.log.WithError(err).Warn("Cannot resolve home directory, skipping user config")
		return ""
	}
	return filepath.Join(home, userConfigName)
}

// resolveProjectFile returns the project config path, or "" when there is
// none. The .yml spelling is accepted as well.
func (l *Loader) resolveProjectFile() string {
	if l.projectFile != "" {
		return l.projectFile
	}
	for _, candidate := range []string{
		"./" + projectConfigName,
		"./" + strings.TrimSuffix(projectConfigName, ".yaml") + ".yml",
	} {
		if l.fs.Exists(candidate) {
			return candidate
		}
	}
	return ""
}

// applyFile layers one YAML config file into the store. A missing file is
// logged and skipped; an unreadable or malformed one is an error.
func (l *Loader) applyFile(s *settings.Store, path, priority string) error {
	if path == "" {
		return nil
	}
	if !l.fs.Exists(path) {
		l.log.Info("Config file not found, skipping", map[string]interface{}{
			"path": path,
		})
		return nil
	}

	data, err := l.fs.ReadFile(path)
	if err != nil {
		return errors.InvalidConfig("file", fmt.Errorf("read %s: %w", path, err))
	}

	values, err := parseYAML(data)
	if err != nil {
		return errors.InvalidConfig("file", fmt.Errorf("parse %s: %w", path, err))
	}

	l.log.Info("Loaded config file", map[string]interface{}{
		"path":     path,
		"priority": priority,
		"keys":     len(values),
	})
	return s.Update(values, priority)
}

// applyEnv loads the .env file if present, then layers every
// MINOTAUR_-prefixed variable, prefix stripped, at env priority.
func (l *Loader) applyEnv(s *settings.Store) error {
	envFile := l.envFile
	if envFile == "" && l.fs.Exists("./.env") {
		envFile = "./.env"
	}
	if envFile != "" && l.fs.Exists(envFile) {
		if err := l.fs.LoadEnv(envFile); err != nil {
			l.log.WithError(err).Warn("Failed to load .env file", map[string]interface{}{
				"path": envFile,
			})
		}
	}

	values := make(map[string]any)
	for _, entry := range l.environ() {
		pair := strings.SplitN(entry, "=", 2)
		if len(pair) != 2 || !strings.HasPrefix(pair[0], EnvPrefix) {
			continue
		}
		// Stripped keys are upper-cased like every other layer, so a
		// .env file spelling MINOTAUR_log_level still shadows LOG_LEVEL.
		key := strings.ToUpper(strings.TrimPrefix(pair[0], EnvPrefix))
		if key == "" {
			continue
		}
		values[key] = pair[1]
	}
	return s.Update(values, settings.PriorityEnv)
}

// parseYAML reads a YAML document into a flat map keyed the way the
// settings store expects: nested sections joined with underscores, upper
// case. Viper lowercases keys, so a file can spell them either way.
func parseYAML(data []byte) (map[string]any, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	values := make(map[string]any)
	for _, key := range v.AllKeys() {
		flat := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		values[flat] = v.Get(key)
	}
	return values, nil
}

// normalizeKeys upper-cases override keys so -s log_level=debug and
// -s LOG_LEVEL=debug land on the same setting.
func normalizeKeys(values map[string]any) map[string]any {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[strings.ToUpper(k)] = v
	}
	return out
}
