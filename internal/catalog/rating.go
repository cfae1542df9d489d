package catalog

import "errors"

const MaxRating = 5.0

var ErrInvalidRating = errors.New("rating must be between 0 and 5")

type Rating struct {
	value float64
}

func NewRating(value float64) (Rating, error) {
	if value < 0 || value > MaxRating {
		return Rating{}, ErrInvalidRating
	}
	return Rating{value: value}, nil
}

func (r Rating) Value() float64 {
	return r.value
}

// IsTopRated only holds at the maximum.
func (r Rating) IsTopRated() bool {
	return r.value >= MaxRating
}
