package vars

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/luminahq/lumina/internal/errdef"
)

// LoadFile reads a flat key/value variable file. YAML is used for .yaml and
// .yml files, dotenv syntax for everything else.
func LoadFile(path string) (map[string]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadYAML(path)
	default:
		values, err := godotenv.Read(path)
		if err != nil {
			return nil, errdef.Wrap(errdef.CodeFilesystem, err, "read env file %s", path)
		}
		return values, nil
	}
}

func loadYAML(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeFilesystem, err, "read env file %s", path)
	}
	var values map[string]string
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, errdef.Wrap(errdef.CodeValidation, err, "parse env file %s", path)
	}
	if values == nil {
		values = map[string]string{}
	}
	return values, nil
}

// EnvironmentName derives a display name from a variable file path.
func EnvironmentName(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.TrimPrefix(name, ".")
	if name == "" || name == "env" {
		return "Imported"
	}
	return name
}
