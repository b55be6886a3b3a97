package classify

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/substationlabs/assetview-backend/internal/platform/logger"
)

const schemaEnv = "CLASSIFY_SCHEMA_YAML"

//go:embed schema.yaml
var schemaFS embed.FS

// Schema fixes the classification shape for a deployment: the ordered level
// attribute keys, the path separator, and the filename suffix sets the
// normalizer recognizes.
type Schema struct {
	LevelKeys       []string
	Separator       string
	ModelSuffixes   []string
	PanoramaMarkers []string
	ImageSuffixes   []string
}

type yamlSchema struct {
	Schema  string `yaml:"schema"`
	Version int    `yaml:"version"`
	Levels  struct {
		Keys      []string `yaml:"keys"`
		Separator string   `yaml:"separator"`
	} `yaml:"levels"`
	Files struct {
		ModelSuffixes   []string `yaml:"model_suffixes"`
		PanoramaMarkers []string `yaml:"panorama_markers"`
		ImageSuffixes   []string `yaml:"image_suffixes"`
	} `yaml:"files"`
}

// DefaultSchema is the compiled-in fallback used when the YAML is missing
// or invalid.
func DefaultSchema() Schema {
	return Schema{
		LevelKeys:       []string{"level1", "level2", "level3", "level4"},
		Separator:       "/",
		ModelSuffixes:   []string{".glb", ".gltf", ".obj", ".fbx"},
		PanoramaMarkers: []string{"_360"},
		ImageSuffixes:   []string{".jpg", ".jpeg", ".png"},
	}
}

// LoadSchema reads the embedded schema YAML, or the file named by
// CLASSIFY_SCHEMA_YAML when set. Invalid input falls back to DefaultSchema
// with a warning rather than failing startup.
func LoadSchema(log *logger.Logger) Schema {
	s, err := loadSchema()
	if err != nil {
		if log != nil {
			log.Warn("classify: schema load failed; using default", "error", err)
		}
		return DefaultSchema()
	}
	return s
}

func loadSchema() (Schema, error) {
	data, err := readSchemaBytes()
	if err != nil {
		return Schema{}, err
	}
	var raw yamlSchema
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Schema{}, err
	}
	s := Schema{
		LevelKeys:       trimAll(raw.Levels.Keys),
		Separator:       raw.Levels.Separator,
		ModelSuffixes:   lowerAll(raw.Files.ModelSuffixes),
		PanoramaMarkers: lowerAll(raw.Files.PanoramaMarkers),
		ImageSuffixes:   lowerAll(raw.Files.ImageSuffixes),
	}
	if err := validateSchema(raw.Schema, s); err != nil {
		return Schema{}, err
	}
	return s, nil
}

func readSchemaBytes() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(schemaEnv)); path != "" {
		return os.ReadFile(path)
	}
	return schemaFS.ReadFile("schema.yaml")
}

func validateSchema(name string, s Schema) error {
	if strings.TrimSpace(name) != "asset_classification" {
		return fmt.Errorf("unexpected schema: %s", name)
	}
	if len(s.LevelKeys) == 0 {
		return errors.New("no level keys defined")
	}
	seen := map[string]bool{}
	for _, k := range s.LevelKeys {
		if k == "" {
			return errors.New("level key is empty")
		}
		if seen[k] {
			return fmt.Errorf("duplicate level key: %s", k)
		}
		seen[k] = true
	}
	if s.Separator == "" {
		return errors.New("separator is empty")
	}
	for _, suf := range s.ModelSuffixes {
		if err := validateSuffix(suf); err != nil {
			return err
		}
	}
	for _, suf := range s.ImageSuffixes {
		if err := validateSuffix(suf); err != nil {
			return err
		}
	}
	if len(s.PanoramaMarkers) > 0 && len(s.ImageSuffixes) == 0 {
		return errors.New("panorama markers defined without image suffixes")
	}
	for _, m := range s.PanoramaMarkers {
		if strings.TrimSpace(m) == "" {
			return errors.New("panorama marker is empty")
		}
	}
	return nil
}

func validateSuffix(suf string) error {
	if !strings.HasPrefix(suf, ".") || len(suf) < 2 {
		return fmt.Errorf("suffix must start with a dot: %q", suf)
	}
	return nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		out = append(out, strings.TrimSpace(v))
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(v)))
	}
	return out
}
