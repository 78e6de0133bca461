package model

// DocumentSequence backs human-facing document numbers (WO, BA, QC, LOT, DN,
// SO). Rows are claimed with a compare-and-swap on NextValue; numbers are
// immutable once assigned.
type DocumentSequence struct {
	Name      string `gorm:"type:varchar(40);primaryKey" json:"name"` // e.g. "WO-20260823"
	NextValue int64  `gorm:"not null" json:"next_value"`
}
