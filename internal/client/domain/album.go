package domain

import "time"

type Album struct {
	ID           int64
	Title        string
	Date         time.Time
	Description  string
	PhotoCount   int
	Public       bool
	Parent       *int64
	SortOrder    string
	Downloadable bool
	ShowMetadata bool
	ShowLocation bool
}
