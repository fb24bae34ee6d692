package constants

// Mode distinguishes a single default run from a batch of automated runs.
type Mode string

const (
	// ModeSingle writes to <kind>_output_single/run_MMMMM.
	ModeSingle Mode = "single"

	// ModeBatch writes to <kind>_output_batch_NNNNN/run_MMMMM.
	ModeBatch Mode = "batch"
)

// Valid returns true if the mode is a recognized value.
func (m Mode) Valid() bool {
	switch m {
	case ModeSingle, ModeBatch:
		return true
	}
	return false
}

// String returns the string representation of the mode.
func (m Mode) String() string {
	return string(m)
}
