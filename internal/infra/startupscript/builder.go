// Package startupscript renders the bash script an instance runs on first
// boot: clone the project repository, write its environment file and hand
// off to the project's own autoconfig script. Rendering is a pure function
// of the project descriptor and the generation time.
package startupscript

import (
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/divyamohan1993/project-orchestrator/internal/catalog"
)

const scriptTemplate = `#!/bin/bash
set -e

# ==========================================
# Auto-generated Startup Script
# Project: {{.ProjectName}}
# Generated: {{.GeneratedAt}}
# ==========================================

# System preparation
apt-get update
apt-get install -y git nano vim curl

# Define user
USERNAME="deployer"

# Create user if missing
if ! id "$USERNAME" &>/dev/null; then
    echo "Creating user $USERNAME..."
    useradd -m -s /bin/bash "$USERNAME"
    echo "$USERNAME ALL=(ALL) NOPASSWD: ALL" > /etc/sudoers.d/deployer-init
    chmod 440 /etc/sudoers.d/deployer-init
    usermod -aG systemd-journal "$USERNAME"
fi

# Clone and configure as user
sudo -u "$USERNAME" bash <<'EOF'
    set -e

    USERNAME="deployer"
    USER_HOME="/home/$USERNAME"
    APP_DIR="$USER_HOME/app"

    # Clean start
    if [ -d "$APP_DIR" ]; then
        rm -rf "$APP_DIR"
    fi

    # Clone the repo
    echo "Cloning repository..."
    git clone {{.GitHubURL}} "$APP_DIR"
    cd "$APP_DIR"

    # Write environment file
    cat > .env <<EOT
{{.EnvLines}}
EOT

    # Run deployment
    echo "Starting deployment..."
    chmod +x {{.AutoconfigScript}}
    ./{{.AutoconfigScript}}
EOF

echo "Startup script completed for {{.ProjectName}}"
`

// Builder renders startup scripts. Safe for concurrent use.
type Builder struct {
	tmpl *template.Template
}

// NewBuilder compiles the script template.
func NewBuilder() *Builder {
	return &Builder{
		tmpl: template.Must(template.New("startup").Parse(scriptTemplate)),
	}
}

type scriptData struct {
	ProjectName      string
	GitHubURL        string
	AutoconfigScript string
	EnvLines         string
	GeneratedAt      string
}

// Render produces the boot script for the project. Environment lines are
// sorted by key so identical inputs render identical scripts.
func (b *Builder) Render(p catalog.Project, generatedAt time.Time) (string, error) {
	var sb strings.Builder

	if err := b.tmpl.Execute(&sb, scriptData{
		ProjectName:      p.Name,
		GitHubURL:        p.GitHubURL,
		AutoconfigScript: p.AutoconfigScript,
		EnvLines:         envLines(p.EnvVars),
		GeneratedAt:      generatedAt.Format(time.RFC3339),
	}); err != nil {
		return "", fmt.Errorf("render startup script for %s: %w", p.ID, err)
	}

	return sb.String(), nil
}

func envLines(env map[string]string) string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s=%q", k, env[k]))
	}

	return strings.Join(lines, "\n")
}
