package domain

import "time"

// Metric names a value extracted from polled records
type Metric string

const (
	MetricInterfaceStatus      Metric = "interface_status"
	MetricInterfaceAdminStatus Metric = "interface_admin_status"
	MetricInterfaceAddress     Metric = "interface_address"
)

// Condition names a comparison between the actual and expected value
type Condition string

const (
	ConditionNotEquals Condition = "not_equals"
)

// AlertRule is a stored monitoring rule for one device
type AlertRule struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name,omitempty" yaml:"name,omitempty"`
	DeviceID  string    `json:"device" yaml:"device"`
	Metric    Metric    `json:"metric" yaml:"metric"`
	Target    string    `json:"target" yaml:"target"`
	Condition Condition `json:"condition" yaml:"condition"`
	Expected  string    `json:"expected" yaml:"expected"`
}

// TriggeredAlert is emitted every evaluation while a rule matches
type TriggeredAlert struct {
	RuleID    string    `json:"rule_id"`
	RuleName  string    `json:"rule_name,omitempty"`
	DeviceID  string    `json:"device_id"`
	Metric    Metric    `json:"metric"`
	Target    string    `json:"target"`
	Condition Condition `json:"condition"`
	Expected  string    `json:"expected"`
	Actual    string    `json:"actual"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}
