package view

import (
	"fmt"
	"time"

	"github.com/stemsi/curricuforge/internal/model"
)

// Snapshot is the serialisable form of a State, used by stores and clients.
type Snapshot struct {
	Status     Status            `json:"status"`
	Curriculum *model.Curriculum `json:"curriculum,omitempty"`
	Error      string            `json:"error,omitempty"`
	Actions    []Action          `json:"actions"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// ToSnapshot captures s at time at.
func ToSnapshot(s State, at time.Time) Snapshot {
	if s == nil {
		s = Initial()
	}
	snap := Snapshot{
		Status:    s.Status(),
		Actions:   Actions(s),
		UpdatedAt: at.UTC(),
	}
	switch st := s.(type) {
	case Viewing:
		snap.Curriculum = st.Curriculum
	case Failed:
		snap.Error = st.Message
	}
	return snap
}

// State rebuilds the State a snapshot was taken from.
func (sn Snapshot) State() (State, error) {
	switch sn.Status {
	case StatusIdle, "":
		return Idle{}, nil
	case StatusGenerating:
		return Generating{}, nil
	case StatusViewing:
		if sn.Curriculum == nil {
			return nil, fmt.Errorf("snapshot: %s without curriculum", sn.Status)
		}
		return Viewing{Curriculum: sn.Curriculum}, nil
	case StatusError:
		return Failed{Message: sn.Error}, nil
	default:
		return nil, fmt.Errorf("snapshot: unknown status %q", sn.Status)
	}
}
