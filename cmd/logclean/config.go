package main

import (
	"fmt"
	"strings"

	coreerrors "github.com/davidahmann/logclean/core/errors"
	"github.com/davidahmann/logclean/core/projectconfig"
)

// loadProjectConfig reads the default project file when present; an explicit
// --config path must exist.
func loadProjectConfig(path string) (projectconfig.Config, error) {
	trimmed := strings.TrimSpace(path)
	allowMissing := trimmed == ""
	if allowMissing {
		trimmed = projectconfig.DefaultPath
	}
	configuration, err := projectconfig.Load(trimmed, allowMissing)
	if err != nil {
		return projectconfig.Config{}, coreerrors.Wrap(
			fmt.Errorf("load %s: %w", trimmed, err),
			coreerrors.CategoryInvalidInput,
			"config_invalid",
			"fix the project config or pass --config <path>",
			false,
		)
	}
	return configuration, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
