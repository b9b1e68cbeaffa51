package activity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// ParseDate accepts RFC3339 timestamps and plain calendar dates. An empty
// string yields nil.
func ParseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}

	return nil, ErrInvalidDate
}

func NewFromCreateRequest(req CreateRequest, readMore *string) (Activity, error) {
	date, err := ParseDate(req.Date)
	if err != nil {
		return Activity{}, err
	}

	now := time.Now().UTC()

	a := Activity{
		ID:        uuid.NewString(),
		Type:      req.Type,
		Title:     req.Title,
		ShortDesc: req.ShortDesc,
		LongDesc:  req.LongDesc,
		RollCall:  req.RollCall,
		ReadMore:  readMore,
		Date:      date,
		Congress:  req.Congress,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if req.TermID != "" {
		id := req.TermID
		a.TermID = &id
	}

	return a, nil
}

// PatchFromUpdateRequest converts the wire payload; readMore is set separately
// when a new document accompanies the update.
func PatchFromUpdateRequest(req UpdateRequest, readMore *string) (Patch, error) {
	p := Patch{
		Type:      req.Type,
		Title:     req.Title,
		ShortDesc: req.ShortDesc,
		LongDesc:  req.LongDesc,
		RollCall:  req.RollCall,
		ReadMore:  readMore,
		Congress:  req.Congress,
		TermID:    req.TermID,
	}

	if req.Date != nil {
		d, err := ParseDate(*req.Date)
		if err != nil {
			return Patch{}, err
		}
		p.Date = d
	}

	return p, nil
}
