package testutil

// DefaultEpoch is the token FixedEpoch returns when none is configured.
const DefaultEpoch = "test-epoch-default"

// FixedEpoch hands the same epoch token to every activation, so traces do
// not depend on UUID generation. It satisfies undo.EpochGenerator.
//
// Use undo.NewFixedGenerator instead when successive activations must be
// told apart.
type FixedEpoch string

// Generate returns the fixed token, or DefaultEpoch if it is empty.
func (e FixedEpoch) Generate() string {
	if e == "" {
		return DefaultEpoch
	}
	return string(e)
}
