package ci

import (
	"fmt"

	"github.com/roach88/causetrail/internal/cause"
	"github.com/roach88/causetrail/internal/store"
)

// Run is a scheduled build of a project.
//
// A Run is immutable once returned by a Scheduler.
type Run struct {
	ID      string
	Project string
	Number  int
	ChainID string
	Seq     int64
	Policy  cause.Policy

	causes cause.Chain
}

var _ cause.Build = (*Run)(nil)

// ProjectName implements cause.Build.
func (r *Run) ProjectName() string { return r.Project }

// BuildNumber implements cause.Build.
func (r *Run) BuildNumber() int { return r.Number }

// Causes implements cause.Build.
func (r *Run) Causes() cause.Chain { return r.causes }

// String returns "project#number".
func (r *Run) String() string {
	return fmt.Sprintf("%s#%d", r.Project, r.Number)
}

func runFromRecord(rec store.RunRecord) *Run {
	return &Run{
		ID:      rec.ID,
		Project: rec.Project,
		Number:  rec.Number,
		ChainID: rec.ChainID,
		Seq:     rec.Seq,
		Policy:  rec.Policy,
		causes:  rec.Causes,
	}
}
