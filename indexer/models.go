package indexer

import "time"

// DisputeRecord is one row per disputed candidate, updated as the dispute moves.
type DisputeRecord struct {
	ID          uint      `gorm:"primaryKey"`
	Candidate   string    `gorm:"size:66;uniqueIndex;not null"`
	Session     uint32    `gorm:"index"`
	OpenedAt    uint64    `gorm:"index"`
	State       string    `gorm:"size:16;index"`
	Verdict     string    `gorm:"size:16;index"`
	ParaID      uint32    `gorm:"index"`
	HeadData    string    `gorm:"size:1024"`
	ConcludedAt time.Time `gorm:"index"`
	Punished    int
	Invalidated int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OffenderRecord is one punished validator of a resolved dispute.
type OffenderRecord struct {
	ID          uint   `gorm:"primaryKey"`
	Candidate   string `gorm:"size:66;index:ux_candidate_validator,unique"`
	ValidatorID uint32 `gorm:"index:ux_candidate_validator,unique;index"`
	Verdict     string `gorm:"size:16"`
	Reasons     string `gorm:"size:64"`
	Status      uint64
	CreatedAt   time.Time
}

// InvalidatedHead is a branch head pruned by an invalid verdict.
type InvalidatedHead struct {
	ID        uint   `gorm:"primaryKey"`
	Candidate string `gorm:"size:66;index"`
	Head      string `gorm:"size:66;index"`
	CreatedAt time.Time
}
