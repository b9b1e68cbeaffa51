package term

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("term not found")

// Term is a legislative term activities are filed under.
type Term struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Congress  string    `json:"congress,omitempty"`
	StartYear int       `json:"startYear,omitempty"`
	EndYear   int       `json:"endYear,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreateRequest struct {
	Name      string `json:"name" binding:"required,min=2,max=120"`
	Congress  string `json:"congress" binding:"omitempty,max=20"`
	StartYear int    `json:"startYear" binding:"omitempty,min=1789,max=2200"`
	EndYear   int    `json:"endYear" binding:"omitempty,min=1789,max=2200,gtefield=StartYear"`
}

func NewFromCreateRequest(req CreateRequest) Term {
	return Term{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Congress:  req.Congress,
		StartYear: req.StartYear,
		EndYear:   req.EndYear,
		CreatedAt: time.Now().UTC(),
	}
}
