package epoch

import "fmt"

// Config describes how heights are grouped into loyalty epochs.
type Config struct {
	// Length is the number of height units that make up a single epoch. The
	// value must be greater than zero.
	Length uint64
}

// DefaultConfig returns the epoch length used by the original deployment
// (100000 blocks).
func DefaultConfig() Config {
	return Config{Length: 100_000}
}

// Validate ensures the configuration is self-consistent.
func (c Config) Validate() error {
	if c.Length == 0 {
		return fmt.Errorf("epoch length must be greater than zero")
	}
	return nil
}

// Index derives the epoch containing height. Epochs are never stored as
// wall-clock time, only computed from the externally supplied height.
func (c Config) Index(height uint64) uint64 {
	if c.Length == 0 {
		return 0
	}
	return height / c.Length
}

// StartHeight returns the first height belonging to epoch.
func (c Config) StartHeight(epoch uint64) uint64 {
	return epoch * c.Length
}
