// Package settings supplies flag values from outside the command line: a
// TOML or YAML settings file and DISCO_* environment variables.
//
// A settings file has one table per subcommand whose keys are long flag
// names:
//
//	[decomp]
//	delimiter = "_"
//	minimum = 5
//
//	[concat]
//	format = "fasta"
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ConfigEnv names the environment variable that selects a settings file
// when --config is not given.
const ConfigEnv = "DISCO_CONFIG"

// File is a parsed settings file.
type File struct {
	Path     string
	sections map[string]map[string]any
}

// Load reads a settings file, picking the decoder from its extension.
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}
	return Parse(path, b)
}

// Parse decodes settings content. The name only selects the format.
func Parse(name string, content []byte) (*File, error) {
	var raw map[string]any
	switch strings.ToLower(filepath.Ext(name)) {
	case ".toml":
		if err := toml.Unmarshal(content, &raw); err != nil {
			return nil, fmt.Errorf("TOML parse error in %s: %w", name, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, &raw); err != nil {
			return nil, fmt.Errorf("YAML parse error in %s: %w", name, err)
		}
	default:
		return nil, fmt.Errorf("settings %s: unsupported extension (use .toml, .yaml or .yml)", name)
	}

	f := &File{Path: name, sections: map[string]map[string]any{}}
	for section, v := range raw {
		table, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("settings %s: %q must be a table of flag values", name, section)
		}
		f.sections[section] = table
	}
	return f, nil
}

// Lookup returns the scalar value stored under section.key as a flag string.
func (f *File) Lookup(section, key string) (string, bool) {
	if f == nil {
		return "", false
	}
	v, ok := f.sections[section][key]
	if !ok || v == nil {
		return "", false
	}
	switch v.(type) {
	case map[string]any, []any:
		return "", false
	}
	return fmt.Sprint(v), true
}

// Source exposes one key of a settings file as a flag value source.
func (f *File) Source(section, key string) Source {
	return Source{file: f, section: section, key: key}
}

// Source implements the flag value source contract (Lookup, String, GoString).
type Source struct {
	file    *File
	section string
	key     string
}

func (s Source) Lookup() (string, bool) { return s.file.Lookup(s.section, s.key) }

func (s Source) String() string {
	path := "<none>"
	if s.file != nil {
		path = s.file.Path
	}
	return fmt.Sprintf("key %q in [%s] of %s", s.key, s.section, path)
}

func (s Source) GoString() string {
	return fmt.Sprintf("&settings.Source{section:%q,key:%q}", s.section, s.key)
}

// EnvSource reads a flag value from an environment variable.
type EnvSource struct {
	Key string
}

// EnvKey builds the variable name for a subcommand flag, e.g.
// DISCO_DECOMP_NTH_DELIMITER for decomp --nth-delimiter.
func EnvKey(command, flag string) string {
	r := strings.NewReplacer("-", "_", ".", "_")
	return "DISCO_" + strings.ToUpper(r.Replace(command)) + "_" + strings.ToUpper(r.Replace(flag))
}

func (e EnvSource) Lookup() (string, bool) { return os.LookupEnv(e.Key) }

func (e EnvSource) String() string { return fmt.Sprintf("environment variable %q", e.Key) }

func (e EnvSource) GoString() string { return fmt.Sprintf("&settings.EnvSource{Key:%q}", e.Key) }

// PathFromArgs finds the --config value in an argument vector before the
// grammar parses it, falling back to $DISCO_CONFIG. Scanning stops at "--".
func PathFromArgs(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			break
		}
		for _, prefix := range []string{"--config", "-config"} {
			if a == prefix && i+1 < len(args) {
				return args[i+1]
			}
			if strings.HasPrefix(a, prefix+"=") {
				return strings.TrimPrefix(a, prefix+"=")
			}
		}
	}
	return os.Getenv(ConfigEnv)
}
