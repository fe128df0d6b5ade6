// Package policy provides a simple, optional launch gate that can be attached
// to a context.  It is deliberately decoupled from the rest of the facade so
// that using it is entirely opt-in – callers that do not embed the Policy in
// their context keep the original "launch everything" behaviour.

package policy

import (
	"context"
	"path/filepath"
	"strings"
)

// Launch modes recognised by the facade.
const (
	ModeAsk  = "ask"  // ask before every launch
	ModeAuto = "auto" // launch automatically (default)
	ModeDeny = "deny" // block every launch
)

// AskFunc is invoked when Mode==ask.  Returning true approves the launch,
// false rejects it.  Implementations MAY mutate the policy (for example,
// switching to ModeAuto after the first approval).
type AskFunc func(
	ctx context.Context,
	name string, // executable name or path
	args []string, // launch arguments – may be nil
	p *Policy,
) bool

// Policy represents the launch restrictions for the current run.
//
//   - Mode controls the high-level behaviour (ask / auto / deny).
//   - AllowList, BlockList allow coarse filtering regardless of Mode.
//   - Ask is only used when Mode==ask.
//
// A nil *Policy means "launch everything" and is therefore the zero-cost
// default.
type Policy struct {
	Mode      string   // ask / auto / deny      (default = auto)
	AllowList []string // whitelist (empty => all)
	BlockList []string // blacklist
	Ask       AskFunc  // used only when Mode==ask
}

// Config represents the declarative, serialisable part of a Policy.
type Config struct {
	Mode      string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	AllowList []string `json:"allow,omitempty" yaml:"allow,omitempty"`
	BlockList []string `json:"block,omitempty" yaml:"block,omitempty"`
}

// ToConfig converts a runtime Policy into a persistable Config.
func ToConfig(p *Policy) *Config {
	if p == nil {
		return nil
	}
	return &Config{
		Mode:      p.Mode,
		AllowList: append([]string(nil), p.AllowList...),
		BlockList: append([]string(nil), p.BlockList...),
	}
}

// FromConfig converts a stored Config back to a runtime Policy (without
// AskFunc).
func FromConfig(c *Config) *Policy {
	if c == nil {
		return nil
	}
	return &Policy{
		Mode:      c.Mode,
		AllowList: append([]string(nil), c.AllowList...),
		BlockList: append([]string(nil), c.BlockList...),
	}
}

// IsAllowed evaluates AllowList / BlockList.  Both lists match by exact,
// case-insensitive comparison against the executable as given and against its
// base name, so an entry "sh" also covers "/bin/sh".
func (p *Policy) IsAllowed(name string) bool {
	if p == nil {
		return true
	}

	normalized := strings.ToLower(name)
	base := strings.ToLower(filepath.Base(name))

	// BlockList has priority.
	for _, b := range p.BlockList {
		entry := strings.ToLower(b)
		if normalized == entry || base == entry {
			return false
		}
	}

	// AllowList – if empty everything is allowed, otherwise only the listed
	// entries.
	if len(p.AllowList) == 0 {
		return true
	}

	for _, a := range p.AllowList {
		entry := strings.ToLower(a)
		if normalized == entry || base == entry {
			return true
		}
	}

	return false
}

// Allows reports whether the policy permits launching name with args.  The
// allow and block lists apply regardless of Mode; Mode then decides what
// happens to launches the lists let through.
func (p *Policy) Allows(ctx context.Context, name string, args []string) bool {
	if p == nil {
		return true
	}
	if !p.IsAllowed(name) {
		return false
	}
	switch strings.ToLower(p.Mode) {
	case ModeDeny:
		return false
	case ModeAsk:
		if p.Ask == nil {
			return false
		}
		return p.Ask(ctx, name, args, p)
	default:
		return true
	}
}

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithPolicy embeds policy in ctx.
func WithPolicy(ctx context.Context, p *Policy) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, p)
}

// FromContext extracts the policy carried by ctx, if any.
func FromContext(ctx context.Context) *Policy {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKey).(*Policy); ok {
		return v
	}
	return nil
}
