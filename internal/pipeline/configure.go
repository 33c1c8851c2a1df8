package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"netpilot/internal/domain"
	"netpilot/internal/executor"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// ConfigureInterface applies description, admin state and access VLAN
func (p *Pipeline) ConfigureInterface(ctx context.Context, device domain.Device, change domain.InterfaceChange) (*executor.Result, error) {
	adapter, err := p.Adapter(device)
	if err != nil {
		return nil, err
	}
	commands, err := adapter.BuildInterfaceCommands(change)
	if err != nil {
		return nil, fmt.Errorf("interface %s: %w", change.Name, err)
	}
	return p.configure(ctx, device, adapter, commands)
}

// CreateVlan creates or renames a VLAN
func (p *Pipeline) CreateVlan(ctx context.Context, device domain.Device, id int, name string) (*executor.Result, error) {
	adapter, err := p.Adapter(device)
	if err != nil {
		return nil, err
	}
	commands, err := adapter.BuildVlanCommands(id, name)
	if err != nil {
		return nil, fmt.Errorf("vlan %d: %w", id, err)
	}
	return p.configure(ctx, device, adapter, commands)
}

// AddStaticRoute adds a route. destination is either "network/prefix" or
// "network mask".
func (p *Pipeline) AddStaticRoute(ctx context.Context, device domain.Device, destination, nextHop string) (*executor.Result, error) {
	adapter, err := p.Adapter(device)
	if err != nil {
		return nil, err
	}
	network, mask := splitDestination(destination)
	commands, err := adapter.BuildStaticRouteCommands(network, mask, nextHop)
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", destination, err)
	}
	return p.configure(ctx, device, adapter, commands)
}

func splitDestination(destination string) (string, string) {
	destination = strings.TrimSpace(destination)
	if network, prefix, ok := strings.Cut(destination, "/"); ok {
		return network, prefix
	}
	if fields := strings.Fields(destination); len(fields) == 2 {
		return fields[0], fields[1]
	}
	return destination, "32"
}

// AddAclRule appends a rule to an access list
func (p *Pipeline) AddAclRule(ctx context.Context, device domain.Device, aclRef string, rule domain.AclRule) (*executor.Result, error) {
	adapter, err := p.Adapter(device)
	if err != nil {
		return nil, err
	}
	commands, err := adapter.BuildAclRuleCommands(aclRef, rule)
	if err != nil {
		return nil, fmt.Errorf("acl %s: %w", aclRef, err)
	}
	return p.configure(ctx, device, adapter, commands)
}

// SaveConfig runs the vendor's explicit save or commit step
func (p *Pipeline) SaveConfig(ctx context.Context, device domain.Device) (*executor.Result, error) {
	adapter, err := p.Adapter(device)
	if err != nil {
		return nil, err
	}
	sess, err := p.sessions.Acquire(ctx, device)
	if err != nil {
		return nil, err
	}
	return p.executor.Persist(ctx, device, sess, adapter)
}

// TemplateVariables returns the distinct {{name}} placeholders in order of
// first appearance
func TemplateVariables(template string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderRe.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// RenderTemplate substitutes every {{name}} placeholder and returns the
// non-blank lines. A placeholder without a value is an error.
func RenderTemplate(template string, vars map[string]string) ([]string, error) {
	var missing []string
	for _, name := range TemplateVariables(template) {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("template variables without values: %s", strings.Join(missing, ", "))
	}

	rendered := placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		return vars[placeholderRe.FindStringSubmatch(m)[1]]
	})

	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(rendered, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, strings.TrimRight(line, " \t"))
		}
	}
	return lines, nil
}

// ApplyTemplate renders the template and sends its lines as one
// configuration batch. The template carries its own configuration-mode
// commands.
func (p *Pipeline) ApplyTemplate(ctx context.Context, device domain.Device, template string, vars map[string]string) (*executor.Result, error) {
	adapter, err := p.Adapter(device)
	if err != nil {
		return nil, err
	}
	commands, err := RenderTemplate(template, vars)
	if err != nil {
		return nil, err
	}
	return p.configure(ctx, device, adapter, commands)
}
