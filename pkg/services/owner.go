package services

import (
	"context"
	"fmt"

	"github.com/leaseflow/leaseflow/pkg/models"
	"github.com/leaseflow/leaseflow/pkg/persistence"
)

// renewalOwner returns the owner of a renewal spawned from seed: the
// authenticated user when they are an agent of the owning team, else the
// team's lease designate.
func (t *Transitions) renewalOwner(ctx context.Context, tx *Tx, seed *models.Party, authUserID string) (string, error) {
	if seed.OwnerTeamID == "" {
		return seed.UserID, nil
	}

	team, err := t.persistence.Settings().GetTeam(ctx, tx, seed.OwnerTeamID)
	if err != nil {
		return "", fmt.Errorf("failed to get owner team %s: %w", seed.OwnerTeamID, err)
	}

	if authUserID != "" && team.HasAgent(authUserID) {
		return authUserID, nil
	}

	if team.LeaseDesignateUserID != "" {
		return team.LeaseDesignateUserID, nil
	}

	return seed.UserID, nil
}

// activeLeaseTeam picks the team owning an active lease: the property's
// resident services team, else the seed's owner team while active, else the
// property's active leasing team.
func (t *Transitions) activeLeaseTeam(ctx context.Context, tx *Tx, seed *models.Party) (*models.Team, error) {
	teams, err := t.persistence.Settings().GetTeams(ctx, tx, seed.AssignedPropertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get teams of property %s: %w", seed.AssignedPropertyID, err)
	}

	for _, team := range teams {
		if !team.Inactive && team.Module == models.TeamModuleResidentServices {
			return team, nil
		}
	}

	if seed.OwnerTeamID != "" {
		team, err := t.persistence.Settings().GetTeam(ctx, tx, seed.OwnerTeamID)
		if err != nil && !persistence.IsNotFound(err) {
			return nil, fmt.Errorf("failed to get owner team %s: %w", seed.OwnerTeamID, err)
		}

		if team != nil && !team.Inactive {
			return team, nil
		}
	}

	for _, team := range teams {
		if !team.Inactive && team.Module == models.TeamModuleLeasing {
			return team, nil
		}
	}

	return nil, ErrNoOwnerTeam
}

// teamOwner keeps the current owner when they belong to team, else hands the party to the lease designate.
func teamOwner(team *models.Team, currentOwner string) string {
	if currentOwner != "" && team.HasAgent(currentOwner) {
		return currentOwner
	}

	if team.LeaseDesignateUserID != "" {
		return team.LeaseDesignateUserID
	}

	return currentOwner
}

// copyMembers copies the current members of from into to.
func (t *Transitions) copyMembers(ctx context.Context, tx *Tx, from, to *models.Party, skipGuarantors bool) error {
	members, err := t.persistence.Parties().GetMembers(ctx, tx, from.ID)
	if err != nil {
		return fmt.Errorf("failed to get members of party %s: %w", from.ID, err)
	}

	for _, member := range members {
		if member.EndDate != nil {
			continue
		}

		if skipGuarantors && member.MemberType == models.MemberTypeGuarantor {
			continue
		}

		err := t.persistence.Parties().CreateMember(ctx, tx, &models.PartyMember{
			PartyID:    to.ID,
			PersonID:   member.PersonID,
			MemberType: member.MemberType,
		})
		if err != nil {
			return fmt.Errorf("failed to copy member %s to party %s: %w", member.PersonID, to.ID, err)
		}
	}

	return nil
}

// copyAdditionalInfo copies current children, pets and vehicles of from into to.
func (t *Transitions) copyAdditionalInfo(ctx context.Context, tx *Tx, from, to *models.Party) error {
	infos, err := t.persistence.Parties().GetAdditionalInfo(ctx, tx, from.ID)
	if err != nil {
		return fmt.Errorf("failed to get additional info of party %s: %w", from.ID, err)
	}

	for _, info := range infos {
		if info.EndDate != nil || !copiedInfoType(info.Type) {
			continue
		}

		err := t.persistence.Parties().CreateAdditionalInfo(ctx, tx, &models.AdditionalInfo{
			PartyID: to.ID,
			Type:    info.Type,
			Info:    info.Info,
		})
		if err != nil {
			return fmt.Errorf("failed to copy %s info to party %s: %w", info.Type, to.ID, err)
		}
	}

	return nil
}

func copiedInfoType(infoType models.AdditionalInfoType) bool {
	switch infoType {
	case models.AdditionalInfoChild, models.AdditionalInfoPet, models.AdditionalInfoVehicle:
		return true
	}

	return false
}
