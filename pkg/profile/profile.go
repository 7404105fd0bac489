// Package profile holds controller profiles: a binding table, button labels
// and settings, with presets, versioned import/export and a load fallback chain.
package profile

import (
	"github.com/google/uuid"

	"mapstick/pkg/binding"
)

// Version is the current document version.
const Version = 2

// Profile is an immutable snapshot once published to the frame loop. Edits
// produce a new Profile.
type Profile struct {
	ID       string
	Name     string
	Bindings binding.Table
	Labels   map[int]string
	Settings Settings
}

// Clone returns a deep copy.
func (p *Profile) Clone() *Profile {
	out := *p
	out.Bindings = p.Bindings.Clone()
	out.Labels = make(map[int]string, len(p.Labels))
	for k, v := range p.Labels {
		out.Labels[k] = v
	}
	return &out
}

// WithBinding returns a copy with cmd bound to b. Commands displaced by the
// assignment are returned so the caller can surface them.
func (p *Profile) WithBinding(cmd binding.Command, b binding.Binding) (*Profile, []binding.Command, error) {
	tbl, displaced, err := p.Bindings.Assign(cmd, b)
	if err != nil {
		return nil, nil, err
	}
	out := p.Clone()
	out.Bindings = tbl
	return out, displaced, nil
}

// WithSettings returns a copy with normalized settings s.
func (p *Profile) WithSettings(s Settings) *Profile {
	out := p.Clone()
	out.Settings = s.Normalize()
	return out
}

func newID() string {
	return uuid.NewString()
}

// standardLabels names the buttons of the standard gamepad layout.
func standardLabels() map[int]string {
	return map[int]string{
		0: "A", 1: "B", 2: "X", 3: "Y",
		4: "LB", 5: "RB", 6: "LT", 7: "RT",
		8: "Back", 9: "Start", 10: "LS", 11: "RS",
		12: "Up", 13: "Down", 14: "Left", 15: "Right",
		16: "Home",
	}
}
