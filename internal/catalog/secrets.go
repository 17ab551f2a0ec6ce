package catalog

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// mergedEnv returns the project's default environment with the per-project
// secret overlay applied on top. A missing overlay file is the common case
// and not an error; an unreadable one is logged and skipped so a broken
// secret mount degrades to defaults instead of blocking deploys.
func (c *Catalog) mergedEnv(p Project) map[string]string {
	env := make(map[string]string, len(p.EnvVars))
	for k, v := range p.EnvVars {
		env[k] = v
	}

	if c.secretsDir == "" {
		return env
	}

	path := filepath.Join(c.secretsDir, "projects", p.ID+".env")

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("stat project secrets", "project", p.ID, "reason", err)
		}

		return env
	}

	overlay, err := godotenv.Read(path)
	if err != nil {
		c.logger.Warn("read project secrets", "project", p.ID, "reason", err)

		return env
	}

	for k, v := range overlay {
		env[k] = v
	}

	return env
}
