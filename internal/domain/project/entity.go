package project

import (
	"strings"
	"time"
)

// Reserved rows that must exist before the server starts.
const (
	InHouseName       = "In-House Project"
	InHouseAccount    = "Internal"
	UnassignedName    = "Unassigned"
	UnassignedAccount = "Internal"
)

type Status string

const (
	StatusActive Status = "active"
	StatusOnHold Status = "on_hold"
	StatusClosed Status = "closed"
)

type Project struct {
	ID        string
	Name      string
	Account   string
	Status    Status
	StartDate *time.Time
	EndDate   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reserved holds the ids of the In-House and Unassigned projects.
type Reserved struct {
	InHouseID    string
	UnassignedID string
}

// Exempt reports whether postings against the project skip allocation checks.
func (r Reserved) Exempt(projectID string) bool {
	return projectID == r.InHouseID || projectID == r.UnassignedID
}

// Key normalises a (name, account) pair for lookups.
func Key(name, account string) string {
	return strings.ToLower(strings.TrimSpace(name)) + "\x00" + strings.ToLower(strings.TrimSpace(account))
}
