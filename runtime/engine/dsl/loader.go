package dsl

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BDNK1/durable/runtime"
)

const extension = ".risor"

// Loader loads Risor orchestrations. The orchestration name is the file
// name without extension.
type Loader struct{}

func NewLoader() *Loader {
	return &Loader{}
}

func (l *Loader) Extensions() []string {
	return []string{"*" + extension}
}

func (l *Loader) Load(filePath string) (runtime.Orchestration, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return runtime.Orchestration{}, fmt.Errorf("error reading script file: %w", err)
	}

	return runtime.Orchestration{
		Name:   strings.TrimSuffix(filepath.Base(filePath), extension),
		Engine: runtime.EngineRisor,
		Source: filePath,
		Body:   string(data),
	}, nil
}
