package birdnest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar-date wire format for hatch dates.
const DateLayout = "2006-01-02"

// IncubationPeriod is the countdown window the tracker shows from the hatch date.
const IncubationPeriod = 12 * 24 * time.Hour

type Nest struct {
	ID        string  `json:"id"`
	OwnerID   string  `json:"-"`
	Name      string  `json:"name"`
	HatchDate *string `json:"hatchDate"`
	Notes     string  `json:"notes"`
	Position  int     `json:"-"`
}

// Input is one element of a replace-all submission. Every field is optional.
type Input struct {
	ID        *string `json:"id" binding:"omitempty,max=64"`
	Name      *string `json:"name" binding:"omitempty,max=200"`
	HatchDate *string `json:"hatchDate" binding:"omitempty,datetime=2006-01-02"`
	Notes     *string `json:"notes" binding:"omitempty,max=5000"`
}

// ReplaceRequest is the full client view. Nests must be a JSON array; an
// empty array clears the collection.
type ReplaceRequest struct {
	Nests []Input `json:"nests" binding:"required,dive"`
}

var (
	ErrVersionMismatch = errors.New("bird nests changed since they were read")
	ErrInvalidDate     = errors.New("hatchDate must be YYYY-MM-DD")
)

// Normalize turns a submission into the rows to insert, in submitted order.
// Missing ids are generated; missing names and notes become empty and a
// missing or blank hatch date becomes null.
func Normalize(ownerID string, in []Input) ([]Nest, error) {
	out := make([]Nest, 0, len(in))

	for i, item := range in {
		n := Nest{
			OwnerID:  ownerID,
			Position: i,
		}

		if item.ID != nil && strings.TrimSpace(*item.ID) != "" {
			n.ID = strings.TrimSpace(*item.ID)
		} else {
			n.ID = uuid.NewString()
		}

		if item.Name != nil {
			n.Name = *item.Name
		}
		if item.Notes != nil {
			n.Notes = *item.Notes
		}

		if item.HatchDate != nil && strings.TrimSpace(*item.HatchDate) != "" {
			d := strings.TrimSpace(*item.HatchDate)
			if _, err := time.Parse(DateLayout, d); err != nil {
				return nil, ErrInvalidDate
			}
			n.HatchDate = &d
		}

		out = append(out, n)
	}

	return out, nil
}

// Version fingerprints an ordered nest set. It is stable for equal content and
// changes with any add, remove, reorder or edit.
func Version(nests []Nest) string {
	b, err := json.Marshal(nests)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

type Progress struct {
	ExpectedHatchAt  time.Time `json:"expectedHatchAt"`
	RemainingSeconds int64     `json:"remainingSeconds"`
	Percent          int       `json:"percent"`
	Hatched          bool      `json:"hatched"`
}

// View is a nest as returned to clients, with its countdown when dated.
type View struct {
	Nest
	Progress *Progress `json:"progress"`
}

// ProgressAt computes the incubation countdown at now. Nests without a valid
// hatch date have none.
func (n Nest) ProgressAt(now time.Time) *Progress {
	if n.HatchDate == nil {
		return nil
	}
	start, err := time.Parse(DateLayout, *n.HatchDate)
	if err != nil {
		return nil
	}

	end := start.Add(IncubationPeriod)
	remaining := end.Sub(now)
	if remaining <= 0 {
		return &Progress{ExpectedHatchAt: end, Percent: 100, Hatched: true}
	}

	elapsed := IncubationPeriod - remaining
	pct := int(elapsed * 100 / IncubationPeriod)
	if pct < 0 {
		pct = 0
	}

	return &Progress{
		ExpectedHatchAt:  end,
		RemainingSeconds: int64(remaining / time.Second),
		Percent:          pct,
	}
}

func Views(nests []Nest, now time.Time) []View {
	out := make([]View, 0, len(nests))
	for _, n := range nests {
		out = append(out, View{Nest: n, Progress: n.ProgressAt(now)})
	}
	return out
}
