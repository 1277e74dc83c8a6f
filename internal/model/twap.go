package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TWAPStatus is the lifecycle stage of the in-flight swap.
type TWAPStatus int

const (
	TWAPIdle TWAPStatus = iota
	TWAPInProgress
	TWAPErrored
)

func (s TWAPStatus) String() string {
	switch s {
	case TWAPInProgress:
		return "IN_PROGRESS"
	case TWAPErrored:
		return "ERRORED"
	default:
		return "IDLE"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s TWAPStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *TWAPStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "IN_PROGRESS":
		*s = TWAPInProgress
	case "ERRORED":
		*s = TWAPErrored
	default:
		*s = TWAPIdle
	}
	return nil
}

// TWAPState describes the single swap being executed in chunks.
type TWAPState struct {
	Side              Action          `json:"side"`
	TokenIn           string          `json:"token_in"`
	TokenOut          string          `json:"token_out"`
	Total             decimal.Decimal `json:"total"`
	ChunkSize         decimal.Decimal `json:"chunk_size"`
	Sold              decimal.Decimal `json:"sold"`
	Bought            decimal.Decimal `json:"bought"`
	LastSwapTimestamp time.Time       `json:"last_swap_timestamp"`
	Status            TWAPStatus      `json:"status"`
	LastError         string          `json:"last_error,omitempty"`
	Chunks            int             `json:"chunks"`
}

// InFlight reports whether part of the swap is still to be sold.
func (s TWAPState) InFlight() bool {
	return s.Total.IsPositive() && s.Sold.LessThan(s.Total)
}

// Remaining is the amount of TokenIn still to be sold.
func (s TWAPState) Remaining() decimal.Decimal {
	if !s.InFlight() {
		return decimal.Zero
	}
	return s.Total.Sub(s.Sold)
}
