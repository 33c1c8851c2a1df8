package pipeline

import (
	"context"
	"fmt"

	"netpilot/internal/domain"
	"netpilot/internal/vendor"
)

// Version returns the OS version and model
func (p *Pipeline) Version(ctx context.Context, device domain.Device) (domain.VersionInfo, error) {
	adapter, text, err := p.query(ctx, device, vendor.PurposeVersion)
	if err != nil {
		return domain.VersionInfo{}, err
	}
	return adapter.ParseVersion(text), nil
}

// InterfaceBrief returns the operational view of every interface
func (p *Pipeline) InterfaceBrief(ctx context.Context, device domain.Device) ([]domain.Interface, error) {
	adapter, text, err := p.query(ctx, device, vendor.PurposeInterfaces)
	if err != nil {
		return nil, err
	}
	return adapter.ParseInterfaceBrief(text), nil
}

// RunningConfig returns the raw running configuration
func (p *Pipeline) RunningConfig(ctx context.Context, device domain.Device) (string, error) {
	_, text, err := p.query(ctx, device, vendor.PurposeRunningConfig)
	return text, err
}

// FullConfig returns the hostname and configuration view of every interface
func (p *Pipeline) FullConfig(ctx context.Context, device domain.Device) (domain.FullConfig, error) {
	adapter, text, err := p.query(ctx, device, vendor.PurposeRunningConfig)
	if err != nil {
		return domain.FullConfig{}, err
	}
	return adapter.ParseFullConfig(text), nil
}

// Interfaces returns the operational and configuration views merged by name
func (p *Pipeline) Interfaces(ctx context.Context, device domain.Device) ([]domain.Interface, error) {
	brief, err := p.InterfaceBrief(ctx, device)
	if err != nil {
		return nil, err
	}
	full, err := p.FullConfig(ctx, device)
	if err != nil {
		return nil, err
	}
	return MergeInterfaces(brief, full.Interfaces), nil
}

// Vlans returns the configured VLANs
func (p *Pipeline) Vlans(ctx context.Context, device domain.Device) ([]domain.Vlan, error) {
	adapter, text, err := p.query(ctx, device, vendor.PurposeVlans)
	if err != nil {
		return nil, err
	}
	return adapter.ParseVlans(text), nil
}

// StaticRoutes returns the configured static routes
func (p *Pipeline) StaticRoutes(ctx context.Context, device domain.Device) ([]domain.Route, error) {
	adapter, text, err := p.query(ctx, device, vendor.PurposeRoutes)
	if err != nil {
		return nil, err
	}
	return adapter.ParseStaticRoutes(text), nil
}

// Acls returns the access lists, firewall filters or chains
func (p *Pipeline) Acls(ctx context.Context, device domain.Device) ([]domain.AclFilter, error) {
	adapter, text, err := p.query(ctx, device, vendor.PurposeAcls)
	if err != nil {
		return nil, err
	}
	return adapter.ParseAcls(text), nil
}

// AclRules returns the rules of one access list
func (p *Pipeline) AclRules(ctx context.Context, device domain.Device, aclRef string) ([]domain.AclRule, error) {
	adapter, err := p.Adapter(device)
	if err != nil {
		return nil, err
	}
	cmd := adapter.AclRulesCommand(aclRef)
	if cmd == "" {
		return nil, domain.Unsupported(adapter.Family(), "acl rules")
	}
	result, err := p.run(ctx, device, adapter, domain.NewQueryBatch(cmd))
	if err != nil {
		return nil, fmt.Errorf("acl rules query on %s: %w", device.Label(), err)
	}
	return adapter.ParseAclRules(aclRef, result.Text()), nil
}

// Hostname returns the configured hostname
func (p *Pipeline) Hostname(ctx context.Context, device domain.Device) (string, error) {
	adapter, text, err := p.query(ctx, device, vendor.PurposeHostname)
	if err != nil {
		return "", err
	}
	return adapter.ParseHostname(text), nil
}

// Compliance checks the running configuration against the adapter's rules
func (p *Pipeline) Compliance(ctx context.Context, device domain.Device) ([]domain.ComplianceResult, error) {
	adapter, text, err := p.query(ctx, device, vendor.PurposeRunningConfig)
	if err != nil {
		return nil, err
	}
	return adapter.CheckCompliance(text), nil
}

// LearnFacts reads version and hostname and writes them back to the
// inventory when a fact writer is configured
func (p *Pipeline) LearnFacts(ctx context.Context, device domain.Device) (domain.DeviceFacts, error) {
	version, err := p.Version(ctx, device)
	if err != nil {
		return domain.DeviceFacts{}, err
	}
	hostname, err := p.Hostname(ctx, device)
	if err != nil {
		return domain.DeviceFacts{}, err
	}

	learned := p.now()
	facts := domain.DeviceFacts{
		OSVersion: version.OSVersion,
		Model:     version.Model,
		Hostname:  hostname,
		LearnedAt: &learned,
	}
	if p.facts != nil && device.ID != "" {
		if err := p.facts.UpdateDeviceFacts(ctx, device.ID, facts); err != nil {
			return facts, fmt.Errorf("failed to store facts for %s: %w", device.Label(), err)
		}
	}
	return facts, nil
}

// MergeInterfaces combines the operational view (brief) with the
// configuration view (full). Brief order is kept; a field set in brief wins
// and empty fields are filled from the configuration view. Interfaces only
// present in the configuration are appended in their original order.
func MergeInterfaces(brief, full []domain.Interface) []domain.Interface {
	byName := make(map[string]domain.Interface, len(full))
	for _, iface := range full {
		byName[iface.Name] = iface
	}

	merged := make([]domain.Interface, 0, len(brief)+len(full))
	seen := make(map[string]bool, len(brief))
	for _, b := range brief {
		seen[b.Name] = true
		if f, ok := byName[b.Name]; ok {
			b.Address = firstNonEmpty(b.Address, f.Address)
			b.OperStatus = firstNonEmpty(b.OperStatus, f.OperStatus)
			b.AdminStatus = firstNonEmpty(b.AdminStatus, f.AdminStatus)
			b.Description = firstNonEmpty(b.Description, f.Description)
			if b.AccessVLAN == 0 {
				b.AccessVLAN = f.AccessVLAN
			}
		}
		merged = append(merged, b)
	}
	for _, f := range full {
		if !seen[f.Name] {
			merged = append(merged, f)
		}
	}
	return merged
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
