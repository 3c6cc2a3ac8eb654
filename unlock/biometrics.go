// Package unlock gates resuming an existing session behind a local
// challenge: a biometric check when the device supports one, otherwise the
// configured fallback.
package unlock

import "context"

// Biometrics is the platform biometric subsystem.
type Biometrics interface {
	HasHardware(ctx context.Context) (bool, error)
	IsEnrolled(ctx context.Context) (bool, error)
	// Authenticate shows the platform prompt and reports explicit success.
	Authenticate(ctx context.Context, prompt string) (bool, error)
}

// Unsupported is a Biometrics for hosts without biometric hardware.
type Unsupported struct{}

var _ Biometrics = Unsupported{}

func (Unsupported) HasHardware(context.Context) (bool, error) { return false, nil }

func (Unsupported) IsEnrolled(context.Context) (bool, error) { return false, nil }

func (Unsupported) Authenticate(context.Context, string) (bool, error) { return false, nil }
