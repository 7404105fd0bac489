package binding

import (
	"errors"
	"fmt"

	"mapstick/pkg/gamepad"
)

var (
	// ErrKindMismatch is returned when a binding type cannot drive a command kind.
	ErrKindMismatch = errors.New("binding type not allowed for command kind")
	// ErrInvalidBinding is returned for malformed bindings.
	ErrInvalidBinding = errors.New("invalid binding")
	// ErrUnknownCommand is returned for commands outside the catalogue.
	ErrUnknownCommand = errors.New("unknown command")
)

// Source is the physical input type of a binding.
type Source string

const (
	SourceButton Source = "button"
	SourceAxis   Source = "axis"
)

// Binding associates a physical input with a command. Values are immutable
// and compared with ==.
type Binding struct {
	Source Source `json:"type" yaml:"type"`
	Index  int    `json:"index" yaml:"index"`
	// Sign is +1 or -1 for axes and signed buttons, 0 for plain buttons.
	Sign int `json:"sign,omitempty" yaml:"sign,omitempty"`
}

// Button binds a plain button.
func Button(index int) Binding {
	return Binding{Source: SourceButton, Index: index}
}

// SignedButton binds a button that contributes +sign to an axis command.
func SignedButton(index, sign int) Binding {
	return Binding{Source: SourceButton, Index: index, Sign: sign}
}

// Axis binds an axis with the given sign.
func Axis(index, sign int) Binding {
	return Binding{Source: SourceAxis, Index: index, Sign: sign}
}

// Validate checks the structural shape of the binding.
func (b Binding) Validate() error {
	if b.Index < 0 {
		return fmt.Errorf("%w: negative index %d", ErrInvalidBinding, b.Index)
	}
	switch b.Source {
	case SourceButton:
		if b.Sign != 0 && b.Sign != 1 && b.Sign != -1 {
			return fmt.Errorf("%w: button sign %d", ErrInvalidBinding, b.Sign)
		}
	case SourceAxis:
		if b.Sign != 1 && b.Sign != -1 {
			return fmt.Errorf("%w: axis sign %d", ErrInvalidBinding, b.Sign)
		}
	default:
		return fmt.Errorf("%w: source %q", ErrInvalidBinding, b.Source)
	}
	return nil
}

// CheckKind verifies that b may drive cmd.
// Button commands take plain buttons; axis commands take axes or signed buttons.
func (b Binding) CheckKind(cmd Command) error {
	if !cmd.Valid() {
		return ErrUnknownCommand
	}
	if err := b.Validate(); err != nil {
		return err
	}
	switch cmd.Kind() {
	case KindButton:
		if b.Source != SourceButton || b.Sign != 0 {
			return fmt.Errorf("%w: %s needs a plain button", ErrKindMismatch, cmd)
		}
	case KindAxis:
		if b.Source == SourceButton && b.Sign == 0 {
			return fmt.Errorf("%w: %s needs an axis or a signed button", ErrKindMismatch, cmd)
		}
	}
	return nil
}

// SameInput reports whether two bindings claim the same physical input.
// Buttons are identified by index; axes by index and direction.
func (b Binding) SameInput(o Binding) bool {
	if b.Source != o.Source || b.Index != o.Index {
		return false
	}
	if b.Source == SourceAxis {
		return b.Sign == o.Sign
	}
	return true
}

// Value reads the signed contribution of the binding from s.
func (b Binding) Value(s gamepad.Snapshot) float64 {
	switch b.Source {
	case SourceAxis:
		return s.Axis(b.Index) * float64(b.Sign)
	case SourceButton:
		sign := b.Sign
		if sign == 0 {
			sign = 1
		}
		return s.ButtonValue(b.Index) * float64(sign)
	}
	return 0
}

// Pressed reports whether the bound input is active in s.
func (b Binding) Pressed(s gamepad.Snapshot) bool {
	switch b.Source {
	case SourceButton:
		return s.Pressed(b.Index)
	case SourceAxis:
		return s.Axis(b.Index)*float64(b.Sign) > gamepad.PressThreshold
	}
	return false
}

func (b Binding) String() string {
	switch {
	case b.Source == SourceAxis && b.Sign < 0:
		return fmt.Sprintf("axis %d-", b.Index)
	case b.Source == SourceAxis:
		return fmt.Sprintf("axis %d+", b.Index)
	case b.Sign < 0:
		return fmt.Sprintf("button %d (-)", b.Index)
	case b.Sign > 0:
		return fmt.Sprintf("button %d (+)", b.Index)
	}
	return fmt.Sprintf("button %d", b.Index)
}
