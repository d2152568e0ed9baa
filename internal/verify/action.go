package verify

import (
	"github.com/MeKo-Tech/checkcode/internal/style"
)

// ActionKind is what a client should offer after a scan.
type ActionKind string

const (
	ActionOpen  ActionKind = "open"
	ActionEmail ActionKind = "email"
	ActionCall  ActionKind = "call"
	ActionCopy  ActionKind = "copy"
)

// Action pairs an action with its target URI. Copy has no target.
type Action struct {
	Kind   ActionKind `json:"kind" yaml:"kind"`
	Target string     `json:"target,omitempty" yaml:"target,omitempty"`
}

// ActionFor suggests the action for scanned content.
func ActionFor(content string) Action {
	switch style.DetectContentType(content) {
	case style.ContentURL:
		return Action{Kind: ActionOpen, Target: content}
	case style.ContentEmail:
		return Action{Kind: ActionEmail, Target: "mailto:" + content}
	case style.ContentPhone:
		return Action{Kind: ActionCall, Target: "tel:" + content}
	default:
		return Action{Kind: ActionCopy}
	}
}
