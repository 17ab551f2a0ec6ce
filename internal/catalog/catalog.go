// Package catalog holds the fixed, enumerable set of deployable demo
// projects. Nothing here comes from user input; the catalog is the only
// source of repository URLs, scripts and environment.
package catalog

import (
	"log/slog"
	"sort"
)

// Project is one catalog entry. Immutable for the process lifetime.
type Project struct {
	ID               string
	Name             string
	Description      string
	GitHubURL        string
	AutoconfigScript string
	Port             int
	EnvVars          map[string]string
	Icon             string
	Category         string
}

// Catalog resolves project identifiers against the static set, overlaying
// per-project secrets from disk on each lookup so rotated secrets are
// picked up without a restart.
type Catalog struct {
	logger     *slog.Logger
	secretsDir string
	projects   map[string]Project
}

// New creates a catalog with the built-in project set. secretsDir may be
// empty, in which case no overlay is applied.
func New(logger *slog.Logger, secretsDir string) *Catalog {
	return &Catalog{
		logger:     logger,
		secretsDir: secretsDir,
		projects:   builtinProjects(),
	}
}

// Lookup returns the project with its environment overlaid from the secret
// store. The second return is false for unknown identifiers.
func (c *Catalog) Lookup(id string) (Project, bool) {
	project, ok := c.projects[id]
	if !ok {
		return Project{}, false
	}

	project.EnvVars = c.mergedEnv(project)

	return project, true
}

// Contains reports whether the identifier names a catalog project.
func (c *Catalog) Contains(id string) bool {
	_, ok := c.projects[id]

	return ok
}

// List returns all projects ordered by identifier. Environment maps are
// not overlaid; listings never need secrets.
func (c *Catalog) List() []Project {
	out := make([]Project, 0, len(c.projects))
	for _, p := range c.projects {
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

func builtinProjects() map[string]Project {
	projects := []Project{
		{
			ID:               "setu-voice-ondc",
			Name:             "Setu Voice ONDC Gateway",
			Description:      "AI-powered voice interface for ONDC marketplace enabling farmers to list products via voice commands.",
			GitHubURL:        "https://github.com/divyamohan1993/setu-voice-ondc-gateway",
			AutoconfigScript: "autoconfig.sh",
			Port:             3000,
			EnvVars: map[string]string{
				"PORT":         "3000",
				"DATABASE_URL": "file:./dev.db",
				"NODE_ENV":     "production",
			},
			Icon:     "🎤",
			Category: "AI/ML",
		},
		{
			ID:               "cityguard-response-hub",
			Name:             "CityGuard Response Hub",
			Description:      "Emergency response coordination system for smart city infrastructure.",
			GitHubURL:        "https://github.com/divyamohan1993/cityguard-response-hub",
			AutoconfigScript: "autoconfig.sh",
			Port:             3000,
			EnvVars: map[string]string{
				"PORT":     "3000",
				"NODE_ENV": "production",
			},
			Icon:     "🚨",
			Category: "Smart City",
		},
	}

	byID := make(map[string]Project, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
	}

	return byID
}
