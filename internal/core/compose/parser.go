package compose

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Parser Functions
// =============================================================================

// ParseManifest parses and interpolates a stack manifest.
// This is a pure function - no I/O, no side effects.
// Input: manifest name (for messages), raw YAML, substitution values
// Output: Manifest or error
func ParseManifest(ctx context.Context, name string, content []byte, env map[string]string) (*Manifest, error) {
	if strings.TrimSpace(string(content)) == "" {
		return nil, NewParseError(name, "", "manifest is empty", ErrEmptyInput)
	}

	project, err := loadProject(ctx, name, content, env)
	if err != nil {
		return nil, err
	}

	if err := checkUnsupportedFeatures(name, project); err != nil {
		return nil, err
	}

	if len(project.Services) == 0 {
		return nil, NewParseError(name, "services", "no services defined", ErrNoServices)
	}

	m := &Manifest{
		Name:      name,
		Services:  project.ServiceNames(),
		Variables: RequiredVariables(string(content)),
	}
	sort.Strings(m.Services)

	seenImage := make(map[string]bool)
	for _, svcName := range m.Services {
		svc := project.Services[svcName]
		if svc.Image == "" {
			return nil, NewParseError(name, "services."+svcName, "service must have an image", ErrServiceNoImage)
		}
		if !seenImage[svc.Image] {
			seenImage[svc.Image] = true
			m.Images = append(m.Images, svc.Image)
		}
	}

	for netName, net := range project.Networks {
		if bool(net.External) {
			m.ExternalNetworks = append(m.ExternalNetworks, externalName(netName, net.Name))
		}
	}
	for volName, vol := range project.Volumes {
		if bool(vol.External) {
			m.ExternalVolumes = append(m.ExternalVolumes, externalName(volName, vol.Name))
		}
	}
	sort.Strings(m.ExternalNetworks)
	sort.Strings(m.ExternalVolumes)

	return m, nil
}

// externalName prefers the explicit name of an external resource over its key.
func externalName(key, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return key
}

// loadProject loads a manifest using compose-go
func loadProject(ctx context.Context, name string, content []byte, env map[string]string) (*types.Project, error) {
	// Parse YAML into a map first
	var dict map[string]interface{}
	if err := yaml.Unmarshal(content, &dict); err != nil {
		return nil, NewParseError(name, "", "invalid YAML syntax", ErrInvalidYAML)
	}

	if dict == nil {
		return nil, NewParseError(name, "", "invalid YAML syntax", ErrInvalidYAML)
	}

	project, err := loader.LoadWithContext(ctx, types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{
			{
				Filename: name,
				Content:  content,
				Config:   dict,
			},
		},
		Environment: types.Mapping(env),
	}, func(opts *loader.Options) {
		opts.SetProjectName(projectName(name), false)
		opts.SkipValidation = false
		opts.SkipInterpolation = false
		// Paths are resolved by the runtime at deploy time
		opts.SkipNormalization = true
		opts.SkipConsistencyCheck = true
		opts.SkipExtends = true
		opts.ResolvePaths = false
	})
	if err != nil {
		return nil, NewParseError(name, "", err.Error(), ErrInvalidYAML)
	}

	return project, nil
}

var projectNameInvalid = regexp.MustCompile(`[^a-z0-9_-]+`)

// projectName derives a valid compose project name from a manifest name.
func projectName(name string) string {
	base := name
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(strings.TrimSuffix(base, ".yaml"), ".yml")
	base = projectNameInvalid.ReplaceAllString(strings.ToLower(base), "_")
	if base == "" || !(base[0] >= 'a' && base[0] <= 'z' || base[0] >= '0' && base[0] <= '9') {
		base = "stack" + base
	}
	return base
}

// checkUnsupportedFeatures rejects features swarm stacks cannot apply
func checkUnsupportedFeatures(name string, project *types.Project) error {
	for _, svc := range project.Services {
		if svc.Build != nil {
			return NewParseError(name, "services."+svc.Name+".build", "build is not supported by swarm stacks", ErrUnsupportedFeature)
		}
		if svc.Extends != nil && svc.Extends.File != "" {
			return NewParseError(name, "services."+svc.Name+".extends", "extends is not supported", ErrUnsupportedFeature)
		}
	}
	return nil
}

// =============================================================================
// Variable Extraction
// =============================================================================

// variablePlaceholderRegex matches ${VAR}, ${VAR:-default}, ${VAR-default},
// ${VAR:?message} and ${VAR?message}. Group 2 holds the modifier, if any.
var variablePlaceholderRegex = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)((?::?[-?])[^}]*)?\}`)

// RequiredVariables extracts placeholders from raw YAML that have no default.
// Placeholders escaped as $${VAR} are ignored.
// Returns unique variable names without the ${} wrapper, in order of first use.
func RequiredVariables(yamlContent string) []string {
	seen := make(map[string]bool)
	var vars []string

	for _, loc := range variablePlaceholderRegex.FindAllStringSubmatchIndex(yamlContent, -1) {
		if loc[0] > 0 && yamlContent[loc[0]-1] == '$' {
			continue
		}
		varName := yamlContent[loc[2]:loc[3]]
		if loc[4] >= 0 {
			modifier := yamlContent[loc[4]:loc[5]]
			if strings.HasPrefix(modifier, ":-") || strings.HasPrefix(modifier, "-") {
				continue
			}
		}
		if !seen[varName] {
			seen[varName] = true
			vars = append(vars, varName)
		}
	}

	return vars
}

// MissingVariables returns the required variables of m absent from env.
func MissingVariables(m *Manifest, env map[string]string) []string {
	var missing []string
	for _, v := range m.Variables {
		if _, ok := env[v]; !ok {
			missing = append(missing, v)
		}
	}
	return missing
}

// =============================================================================
// Validation
// =============================================================================

// UnknownExternals returns the external networks and volumes of m that are
// not in the given sets.
func UnknownExternals(m *Manifest, networks, volumes []string) []string {
	known := make(map[string]bool, len(networks)+len(volumes))
	for _, n := range networks {
		known["network:"+n] = true
	}
	for _, v := range volumes {
		known["volume:"+v] = true
	}

	var unknown []string
	for _, n := range m.ExternalNetworks {
		if !known["network:"+n] {
			unknown = append(unknown, "network "+n)
		}
	}
	for _, v := range m.ExternalVolumes {
		if !known["volume:"+v] {
			unknown = append(unknown, "volume "+v)
		}
	}
	return unknown
}
