package domain

import "time"

// BatchMode distinguishes read-only queries from configuration changes
type BatchMode string

const (
	ModeQuery  BatchMode = "query"
	ModeConfig BatchMode = "config"
)

// CommandBatch is an ordered list of commands sent as one unit to one device
type CommandBatch struct {
	Commands []string
	Mode     BatchMode
	Timeout  time.Duration // per command; zero uses the executor default
}

// NewQueryBatch creates a read-only batch
func NewQueryBatch(commands ...string) CommandBatch {
	return CommandBatch{Commands: commands, Mode: ModeQuery}
}

// NewConfigBatch creates a configuration-mutating batch
func NewConfigBatch(commands ...string) CommandBatch {
	return CommandBatch{Commands: commands, Mode: ModeConfig}
}

// WithTimeout returns a copy of the batch with a per-command timeout
func (b CommandBatch) WithTimeout(d time.Duration) CommandBatch {
	b.Timeout = d
	return b
}

// Mutating reports whether the batch changes device configuration
func (b CommandBatch) Mutating() bool {
	return b.Mode == ModeConfig
}
