package tooling

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"agentgate/internal/domain"
)

//go:embed guides/*.md
var guidesFS embed.FS

// guideOrder lists the embedded guide files in the order their tools are
// registered. The order is part of the agent's tool-selection prompt and of
// the /agent-info response, so it is fixed here rather than derived from the
// filesystem.
var guideOrder = []string{
	"guides/workshop_info.md",
	"guides/ruby_integration.md",
	"guides/cicd_integration.md",
	"guides/kubernetes_deployment.md",
	"guides/helm_charts.md",
	"guides/ruby_testing.md",
}

// GuideFrontmatter holds the YAML frontmatter parsed from a guide .md file.
type GuideFrontmatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// ParseFrontmatter splits a Markdown string into its YAML frontmatter and body.
// Frontmatter must be delimited by "---" on lines by themselves. The body may
// itself contain "---" lines (e.g. YAML document separators in examples);
// only the first closing delimiter ends the frontmatter.
func ParseFrontmatter(content string) (*GuideFrontmatter, string, error) {
	const delimiter = "---"

	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, delimiter) {
		return nil, "", fmt.Errorf("no frontmatter found: content must start with ---")
	}
	rest := trimmed[len(delimiter):]

	closingIdx := strings.Index(rest, "\n"+delimiter)
	if closingIdx == -1 {
		return nil, "", fmt.Errorf("no closing --- delimiter found")
	}

	yamlContent := rest[:closingIdx]
	body := strings.TrimSpace(rest[closingIdx+len("\n"+delimiter):])

	var fm GuideFrontmatter
	if err := yaml.Unmarshal([]byte(yamlContent), &fm); err != nil {
		return nil, "", fmt.Errorf("invalid YAML frontmatter: %w", err)
	}

	if fm.Name == "" {
		return nil, "", fmt.Errorf("frontmatter missing required field: name")
	}
	if fm.Description == "" {
		return nil, "", fmt.Errorf("frontmatter missing required field: description")
	}

	return &fm, body, nil
}

// GuideTool serves a fixed Markdown report. All documentation tools
// (workshop info, Ruby integration patterns, CI/CD, Kubernetes, Helm,
// testing) are guide tools; their content ships embedded in the binary.
type GuideTool struct {
	name        string
	description string
	report      string
}

// NewGuideTool parses a guide document (frontmatter + body) into a tool.
func NewGuideTool(content string) (*GuideTool, error) {
	fm, body, err := ParseFrontmatter(content)
	if err != nil {
		return nil, err
	}
	if body == "" {
		return nil, fmt.Errorf("guide %q has an empty body", fm.Name)
	}
	return &GuideTool{name: fm.Name, description: fm.Description, report: body}, nil
}

// Name returns the tool name from the guide frontmatter.
func (g *GuideTool) Name() string { return g.name }

// Description returns the description from the guide frontmatter.
func (g *GuideTool) Description() string { return g.description }

// Definition returns the JSON Schema for the (empty) input.
func (g *GuideTool) Definition() string {
	return GenerateSchema(EmptyInput{})
}

// Call returns a success envelope with the guide body. The content is static,
// so two calls always produce identical results.
func (g *GuideTool) Call(ctx context.Context, args json.RawMessage) (*domain.ToolResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return domain.Success(g.report), nil
}

// LoadGuides parses every embedded guide file and returns the tools in
// registration order. A malformed guide is a startup error, not a runtime
// condition.
func LoadGuides() ([]*GuideTool, error) {
	guides := make([]*GuideTool, 0, len(guideOrder))
	for _, path := range guideOrder {
		raw, err := guidesFS.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("guide %s: %w", path, err)
		}
		g, err := NewGuideTool(string(raw))
		if err != nil {
			return nil, fmt.Errorf("guide %s: %w", path, err)
		}
		guides = append(guides, g)
	}
	return guides, nil
}

var _ Tool = (*GuideTool)(nil)
