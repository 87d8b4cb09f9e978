// Package models locates acoustic models and dictionary files on disk.
package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Asset type subdirectories of the models directory.
const (
	TypeAcoustic     = "acoustic"
	TypeDictionaries = "dictionaries"
)

// DefaultModelsDir is the models directory relative to the project root.
const DefaultModelsDir = "models"

// EnvModelsDir overrides the models directory.
const EnvModelsDir = "CTCBEAM_MODELS_DIR"

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", errors.New("could not find project root (go.mod not found)")
}

// GetModelsDir returns the models directory.
// Priority: 1. Explicit modelsDir parameter, 2. Environment variable, 3. Project root + default.
func GetModelsDir(modelsDir string) string {
	if modelsDir != "" {
		return modelsDir
	}
	if envDir := os.Getenv(EnvModelsDir); envDir != "" {
		return envDir
	}
	if projectRoot, err := findProjectRoot(); err == nil {
		return filepath.Join(projectRoot, DefaultModelsDir)
	}
	return DefaultModelsDir
}

// Resolve maps a user supplied name to a file. A name that exists as given
// is returned unchanged. Otherwise the models directory is searched, first
// under the assetType subdirectory and then flat. When nothing matches the
// name is returned unchanged so that the caller reports the missing file.
func Resolve(modelsDir, assetType, name string) string {
	if name == "" || fileExists(name) || filepath.IsAbs(name) {
		return name
	}
	baseDir := GetModelsDir(modelsDir)
	candidates := []string{filepath.Join(baseDir, name)}
	if assetType != "" {
		candidates = append([]string{filepath.Join(baseDir, assetType, name)}, candidates...)
	}
	for _, c := range candidates {
		if fileExists(c) {
			return c
		}
	}
	return name
}

// ResolveModelPath resolves an ONNX acoustic model.
func ResolveModelPath(modelsDir, name string) string {
	return Resolve(modelsDir, TypeAcoustic, name)
}

// ResolveDictionaryPaths resolves a comma-separated list of dictionary files
// and returns it in the same form.
func ResolveDictionaryPaths(modelsDir, paths string) string {
	if paths == "" {
		return ""
	}
	parts := strings.Split(paths, ",")
	for i, p := range parts {
		parts[i] = Resolve(modelsDir, TypeDictionaries, strings.TrimSpace(p))
	}
	return strings.Join(parts, ",")
}

// ValidateModelExists checks if a model file exists at the given path.
func ValidateModelExists(modelPath string) error {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", modelPath)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
