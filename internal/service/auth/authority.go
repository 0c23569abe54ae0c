package auth

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/assignment"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
)

type authorityResolverImpl struct {
	registry assignment.Registry
}

func NewAuthorityResolver(registry assignment.Registry) auth.AuthorityResolver {
	return &authorityResolverImpl{registry: registry}
}

// AuthorityOver implements auth.AuthorityResolver.
func (r *authorityResolverImpl) AuthorityOver(ctx context.Context, actor employee.Employee, subjectID string) (auth.Authority, error) {
	a := auth.Authority{
		IsSelf:          actor.ID == subjectID,
		MayActAsSuperHR: auth.IsSuperHR(actor),
	}
	if a.IsSelf {
		return a, nil
	}

	isManager, err := r.registry.IsManagerOf(ctx, actor.ID, subjectID)
	if err != nil {
		return auth.Authority{}, fmt.Errorf("check manager assignment: %w", err)
	}
	a.MayApproveAsManager = isManager

	if actor.Role == employee.RoleHR {
		isHR, err := r.registry.IsHROf(ctx, actor.ID, subjectID)
		if err != nil {
			return auth.Authority{}, fmt.Errorf("check HR assignment: %w", err)
		}
		a.MayApproveAsHR = isHR
	}
	return a, nil
}
