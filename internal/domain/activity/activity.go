package activity

import (
	"errors"
	"time"

	"github.com/geocoder89/civichub/internal/domain/term"
)

type Activity struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	ShortDesc string     `json:"shortDesc,omitempty"`
	LongDesc  string     `json:"longDesc,omitempty"`
	RollCall  string     `json:"rollCall,omitempty"`
	ReadMore  *string    `json:"readMore"`
	Date      *time.Time `json:"date,omitempty"`
	Congress  string     `json:"congress,omitempty"`
	TermID    *string    `json:"termId"`
	Term      *term.Term `json:"term,omitempty"` // populated on reads
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// with pointers if optional, it will be nil
type ListFilter struct {
	Type     *string
	Congress *string
	TermID   *string
	Limit    int
	Offset   int
}

var (
	ErrNotFound    = errors.New("activity not found")
	ErrInvalidDate = errors.New("date must be RFC3339 or YYYY-MM-DD")
	ErrUnknownTerm = errors.New("term does not exist")
)

// Fields arrive either as JSON or as multipart form values next to the
// readMore document, so every field carries both tags.
type CreateRequest struct {
	Type      string `json:"type" form:"type" binding:"required,max=40"`
	Title     string `json:"title" form:"title" binding:"required,min=3,max=300"`
	ShortDesc string `json:"shortDesc" form:"shortDesc" binding:"omitempty,max=1000"`
	LongDesc  string `json:"longDesc" form:"longDesc" binding:"omitempty,max=20000"`
	RollCall  string `json:"rollCall" form:"rollCall" binding:"omitempty,max=300"`
	Date      string `json:"date" form:"date" binding:"omitempty,max=40"`
	Congress  string `json:"congress" form:"congress" binding:"omitempty,max=20"`
	TermID    string `json:"termId" form:"termId" binding:"omitempty,uuid"`
}

// a partial update payload; absent fields are left untouched.
type UpdateRequest struct {
	Type      *string `json:"type" form:"type" binding:"omitempty,min=1,max=40"`
	Title     *string `json:"title" form:"title" binding:"omitempty,min=3,max=300"`
	ShortDesc *string `json:"shortDesc" form:"shortDesc" binding:"omitempty,max=1000"`
	LongDesc  *string `json:"longDesc" form:"longDesc" binding:"omitempty,max=20000"`
	RollCall  *string `json:"rollCall" form:"rollCall" binding:"omitempty,max=300"`
	Date      *string `json:"date" form:"date" binding:"omitempty,max=40"`
	Congress  *string `json:"congress" form:"congress" binding:"omitempty,max=20"`
	TermID    *string `json:"termId" form:"termId" binding:"omitempty,uuid"`
}

// Patch is the storage-facing form of UpdateRequest.
type Patch struct {
	Type      *string
	Title     *string
	ShortDesc *string
	LongDesc  *string
	RollCall  *string
	ReadMore  *string
	Date      *time.Time
	Congress  *string
	TermID    *string
}

func (p Patch) Empty() bool {
	return p.Type == nil && p.Title == nil && p.ShortDesc == nil && p.LongDesc == nil &&
		p.RollCall == nil && p.ReadMore == nil && p.Date == nil && p.Congress == nil && p.TermID == nil
}

func (p Patch) Apply(a *Activity) {
	if p.Type != nil {
		a.Type = *p.Type
	}
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.ShortDesc != nil {
		a.ShortDesc = *p.ShortDesc
	}
	if p.LongDesc != nil {
		a.LongDesc = *p.LongDesc
	}
	if p.RollCall != nil {
		a.RollCall = *p.RollCall
	}
	if p.ReadMore != nil {
		v := *p.ReadMore
		a.ReadMore = &v
	}
	if p.Date != nil {
		d := *p.Date
		a.Date = &d
	}
	if p.Congress != nil {
		a.Congress = *p.Congress
	}
	if p.TermID != nil {
		id := *p.TermID
		a.TermID = &id
	}
}
