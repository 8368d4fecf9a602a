package chain

import "errors"

var (
	ErrNotFound    = errors.New("chain data not found for this ticker")
	ErrRateLimited = errors.New("rate limited by chain API")
	ErrExhausted   = errors.New("replay archive exhausted")
)
