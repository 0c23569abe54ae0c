package assignment

import "time"

type MemberResponse struct {
	EmployeeID string    `json:"employee_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	AssignedAt time.Time `json:"assigned_at"`
}

func NewMemberResponses(members []Member) []MemberResponse {
	out := make([]MemberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, MemberResponse{
			EmployeeID: m.EmployeeID,
			Name:       m.Name,
			Email:      m.ContactEmail(),
			Role:       string(m.Role),
			AssignedAt: m.AssignedAt,
		})
	}
	return out
}

type AssignmentsResponse struct {
	EmployeeID string           `json:"employee_id"`
	Managers   []MemberResponse `json:"managers"`
	HRs        []MemberResponse `json:"hrs"`
}

// ReporteesResponse lists the employees the actor approves for.
type ReporteesResponse struct {
	Managed []MemberResponse `json:"managed"`
	HRd     []MemberResponse `json:"hr_of"`
}
