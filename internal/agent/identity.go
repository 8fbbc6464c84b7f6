package agent

import (
	"agentgate/internal/domain"
	"agentgate/internal/tooling"
)

// AgentName is the published name of the served agent.
const AgentName = "ruby_workshop_agent"

// agentDescription is what /agent-info reports about the agent.
const agentDescription = "AI agent for Ruby developers demonstrating integration patterns, CI/CD workflows, and deployment strategies."

// agentInstruction is the system prompt handed to the model on every turn.
const agentInstruction = `You are a helpful AI assistant specialized in helping Ruby developers integrate AI agents into their applications and workflows.

You can help with:
1. Current time and workshop information
2. Ruby code integration patterns (gems, Rails, HTTP clients)
3. CI/CD integration (GitHub Actions, GitLab CI, Jenkins)
4. Kubernetes deployment patterns and best practices
5. Helm chart configurations and ArgoCD setups
6. Testing strategies for AI-integrated Ruby applications
7. Production deployment and monitoring advice

Always provide practical, production-ready examples that Ruby developers can immediately use in their projects. Focus on real-world integration patterns, error handling, and scalability considerations.`

// NewRegistry builds the agent's tool registry: the live clock first, then
// the embedded guides in their published order.
func NewRegistry() (*tooling.Registry, error) {
	reg := tooling.NewRegistry()
	if err := reg.Register(tooling.NewTimeTool()); err != nil {
		return nil, err
	}
	guides, err := tooling.LoadGuides()
	if err != nil {
		return nil, err
	}
	for _, g := range guides {
		if err := reg.Register(g); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// NewIdentity describes the agent as served on /agent-info. The tool list
// comes from the registry so it always matches what is actually callable.
func NewIdentity(model string, reg *tooling.Registry) *domain.AgentIdentity {
	return &domain.AgentIdentity{
		Name:        AgentName,
		Description: agentDescription,
		Model:       model,
		Instruction: agentInstruction,
		Tools:       reg.Names(),
	}
}
