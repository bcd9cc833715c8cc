package core

import (
	"github.com/aretw0/introspection"
)

// LedgerState exposes internal state for observability.
type LedgerState struct {
	Stages       []string `json:"stages"`
	IndexEnabled bool     `json:"index_enabled"`
}

// State implements introspection.Introspectable.
func (l *Ledger) State() any {
	stages := make([]string, 0, 3)
	for _, s := range []Stage{StageBase, StageAdjusted, StageFinal} {
		if l.Store(s) != nil {
			stages = append(stages, string(s))
		}
	}
	return LedgerState{
		Stages:       stages,
		IndexEnabled: l.index != nil,
	}
}

// ComponentType implements introspection.Component.
func (l *Ledger) ComponentType() string {
	return "ledger"
}

var _ introspection.Introspectable = (*Ledger)(nil)
var _ introspection.Component = (*Ledger)(nil)
