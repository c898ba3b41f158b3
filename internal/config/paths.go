package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Paths holds the resolved filesystem roots the app serves from.
type Paths struct {
	// ProjectRoot is the directory containing the installed binary, with
	// symlinks resolved.
	ProjectRoot string

	// StaticRoot is the resolved static file directory.
	StaticRoot string

	// TemplatePath is the resolved template directory.
	TemplatePath string
}

// ProjectRoot returns the filesystem root of the installed binary.
// Paths are always resolved against the executable location, never the
// current working directory.
func ProjectRoot() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	return filepath.Dir(exe), nil
}

// ResolvePaths substitutes the project-root placeholder in the configured
// static and template path templates.
func (c *Config) ResolvePaths(projectRoot string) (*Paths, error) {
	staticRoot, err := substituteProjectRoot(c.API.StaticRoot, projectRoot)
	if err != nil {
		return nil, fmt.Errorf("static_root: %w", err)
	}

	templatePath, err := substituteProjectRoot(c.API.TemplatePath, projectRoot)
	if err != nil {
		return nil, fmt.Errorf("template_path: %w", err)
	}

	return &Paths{
		ProjectRoot:  projectRoot,
		StaticRoot:   staticRoot,
		TemplatePath: templatePath,
	}, nil
}

// substituteProjectRoot replaces the placeholder in a path template and
// cleans the result.
func substituteProjectRoot(template, projectRoot string) (string, error) {
	if !strings.Contains(template, ProjectRootPlaceholder) {
		return "", fmt.Errorf("value %q must contain %s", template, ProjectRootPlaceholder)
	}
	resolved := strings.ReplaceAll(template, ProjectRootPlaceholder, projectRoot)
	return filepath.Clean(resolved), nil
}
