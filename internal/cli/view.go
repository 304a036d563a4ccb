package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/causetrail/internal/cause"
	"github.com/roach88/causetrail/internal/ci"
	"github.com/roach88/causetrail/internal/codec"
)

// RunView is the output form of one run.
type RunView struct {
	ID           string          `json:"id"`
	Project      string          `json:"project"`
	Number       int             `json:"number"`
	Seq          int64           `json:"seq"`
	ChainID      string          `json:"chain_id"`
	Stats        cause.Stats     `json:"stats"`
	Descriptions []string        `json:"descriptions"`
	Causes       json.RawMessage `json:"causes,omitempty"`

	tree string
}

func newRunView(r *ci.Run, rn *cause.Renderer, tree bool) (*RunView, error) {
	chain := r.Causes()
	v := &RunView{
		ID:           r.ID,
		Project:      r.Project,
		Number:       r.Number,
		Seq:          r.Seq,
		ChainID:      r.ChainID,
		Stats:        cause.Measure(chain),
		Descriptions: make([]string, 0, chain.Len()),
	}
	for _, c := range chain.All() {
		v.Descriptions = append(v.Descriptions, rn.Describe(c))
	}
	if tree {
		encoded, err := codec.Encode(chain)
		if err != nil {
			return nil, err
		}
		v.Causes = encoded

		var sb strings.Builder
		if err := rn.PrintTree(&sb, chain); err != nil {
			return nil, err
		}
		v.tree = sb.String()
	}
	return v, nil
}

// WriteText prints the run header followed by its causes.
func (v *RunView) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s#%d (run %s, seq %d)\n", v.Project, v.Number, v.ID, v.Seq); err != nil {
		return err
	}
	if v.tree != "" {
		_, err := io.WriteString(w, v.tree)
		return err
	}
	for _, d := range v.Descriptions {
		if _, err := fmt.Fprintln(w, d); err != nil {
			return err
		}
	}
	return nil
}

// RunList is the output form of the runs command.
type RunList struct {
	Project string     `json:"project,omitempty"`
	Runs    []*RunView `json:"runs"`
}

// WriteText prints one line per run: its reference and first cause.
func (l *RunList) WriteText(w io.Writer) error {
	if len(l.Runs) == 0 {
		if l.Project == "" {
			_, err := fmt.Fprintln(w, "No runs.")
			return err
		}
		_, err := fmt.Fprintf(w, "No runs for %s.\n", l.Project)
		return err
	}
	for _, r := range l.Runs {
		summary := ""
		if len(r.Descriptions) > 0 {
			summary = r.Descriptions[0]
			if extra := len(r.Descriptions) - 1; extra > 0 {
				summary += fmt.Sprintf(" (+%d more)", extra)
			}
		}
		if _, err := fmt.Fprintf(w, "%s#%d\t%s\n", r.Project, r.Number, summary); err != nil {
			return err
		}
	}
	return nil
}
