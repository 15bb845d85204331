package yaml

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	goyaml "gopkg.in/yaml.v3"

	"github.com/BDNK1/durable/runtime"
)

// Loader loads orchestration definitions from YAML files. The name defaults
// to the file name without extension.
type Loader struct{}

func NewLoader() *Loader {
	return &Loader{}
}

func (l *Loader) Extensions() []string {
	return []string{"*.yaml", "*.yml"}
}

func (l *Loader) Load(filePath string) (runtime.Orchestration, error) {
	yamlFile, err := os.ReadFile(filePath)
	if err != nil {
		return runtime.Orchestration{}, fmt.Errorf("error reading YAML file: %w", err)
	}

	var o runtime.Orchestration
	if err := goyaml.Unmarshal(yamlFile, &o); err != nil {
		return runtime.Orchestration{}, fmt.Errorf("error unmarshalling YAML %s: %w", filePath, err)
	}

	if o.Name == "" {
		o.Name = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}
	o.Engine = runtime.EngineYAML
	o.Source = filePath
	return o, nil
}
