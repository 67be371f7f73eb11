package simulation

import "errors"

var (
	// ErrParameter marks malformed input: a negative quantity, a non-positive
	// parameter or date arithmetic past MaxDate. It is fatal to the run producing it.
	ErrParameter = errors.New("simulation parameter error")

	// ErrEmptyInput is returned when a probability would be divided by a zero
	// occurrence count.
	ErrEmptyInput = errors.New("simulation empty input")
)
