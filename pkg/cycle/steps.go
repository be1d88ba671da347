package cycle

import (
	"context"

	"github.com/leaseflow/leaseflow/pkg/models"
	"github.com/leaseflow/leaseflow/pkg/persistence"
	"github.com/leaseflow/leaseflow/pkg/services"
)

// Step names one stage of a cycle.
type Step string

const (
	StepVoidRenewalsVacateDatePassed Step = "void_renewals_vacate_date_passed"
	StepOneMonthLease                Step = "one_month_lease"
	StepExtension                    Step = "extension"
	StepArchiveMovedOut              Step = "archive_moved_out"
	StepUpdateExtensionEndDates      Step = "update_extension_end_dates"
	StepSpawnFromNewLeases           Step = "spawn_active_leases_from_new_leases"
	StepSpawnFromRenewals            Step = "spawn_active_leases_from_renewals"
	StepSpawnRenewals                Step = "spawn_renewals"
	StepArchiveConvertedNewLeases    Step = "archive_converted_new_leases"
	StepArchiveConvertedRenewals     Step = "archive_converted_renewals"
	StepArchiveMissingFromSync       Step = "archive_missing_from_sync"
	StepArchiveMoveInNotConfirmed    Step = "archive_move_in_not_confirmed"
)

// Steps lists every step in execution order.
func Steps() []Step {
	return []Step{
		StepVoidRenewalsVacateDatePassed,
		StepOneMonthLease,
		StepExtension,
		StepArchiveMovedOut,
		StepUpdateExtensionEndDates,
		StepSpawnFromNewLeases,
		StepSpawnFromRenewals,
		StepSpawnRenewals,
		StepArchiveConvertedNewLeases,
		StepArchiveConvertedRenewals,
		StepArchiveMissingFromSync,
		StepArchiveMoveInNotConfirmed,
	}
}

// workItem applies one transition to one selected row.
type workItem func(ctx context.Context) services.TransitionResult

func (s step) apply(ctx context.Context, item workItem) services.TransitionResult {
	return item(ctx)
}

type step struct {
	name             Step
	requiresRenewals bool
	unscopedOnly     bool
	selectItems      func(ctx context.Context, ex persistence.Executor, filter persistence.Filter) ([]workItem, error)
}

func items[T any](rows []T, apply func(ctx context.Context, row T) services.TransitionResult) []workItem {
	out := make([]workItem, 0, len(rows))

	for _, row := range rows {
		out = append(out, func(ctx context.Context) services.TransitionResult {
			return apply(ctx, row)
		})
	}

	return out
}

func (p *Processor) buildSteps() []step {
	parties := p.persistence.Parties()
	activeLeases := p.persistence.ActiveLeases()

	return []step{
		{
			name: StepVoidRenewalsVacateDatePassed,
			selectItems: func(ctx context.Context, ex persistence.Executor, filter persistence.Filter) ([]workItem, error) {
				rows, err := parties.GetRenewalsWithVacateDatePassed(ctx, ex, filter)

				return items(rows, func(ctx context.Context, party *models.Party) services.TransitionResult {
					return p.transitions.VoidRenewalWithVacateDatePassed(ctx, party.ID)
				}), err
			},
		},
		{
			name: StepOneMonthLease,
			selectItems: func(ctx context.Context, ex persistence.Executor, filter persistence.Filter) ([]workItem, error) {
				rows, err := activeLeases.GetEligibleForOneMonthLeaseTerm(ctx, ex, filter)

				return items(rows, func(ctx context.Context, row *persistence.EligibleActiveLease) services.TransitionResult {
					return p.transitions.CreateOneMonthActiveLease(ctx, row.Party.ID)
				}), err
			},
		},
		{
			name: StepExtension,
			selectItems: func(ctx context.Context, ex persistence.Executor, filter persistence.Filter) ([]workItem, error) {
				rows, err := activeLeases.GetEligibleForExtension(ctx, ex, filter)
				if err != nil {
					return nil, err
				}

				movingOut, err := activeLeases.GetEligibleMovingOutForExtension(ctx, ex, filter)
				if err != nil {
					return nil, err
				}

				return items(append(rows, movingOut...), func(ctx context.Context, row *persistence.EligibleActiveLease) services.TransitionResult {
					return p.transitions.SetExtensionOnActiveLease(ctx, row.ActiveLease.ID)
				}), nil
			},
		},
		{
			name: StepArchiveMovedOut,
			selectItems: func(ctx context.Context, ex persistence.Executor, filter persistence.Filter) ([]workItem, error) {
				rows, err := activeLeases.GetMovingOutActiveLeases(ctx, ex, filter)

				return items(rows, func(ctx context.Context, row *persistence.EligibleActiveLease) services.TransitionResult {
					return p.transitions.ArchiveMovingOutActiveLease(ctx, row.Party.ID)
				}), err
			},
		},
		{
			name: StepUpdateExtensionEndDates,
			selectItems: func(ctx context.Context, ex persistence.Executor, filter persistence.Filter) ([]workItem, error) {
				rows, err := activeLeases.GetExtendedLeasesWithEndDateInPast(ctx, ex, filter)

				return items(rows, func(ctx context.Context, row *persistence.EligibleActiveLease) services.TransitionResult {
					return p.transitions.UpdateExtensionLeaseEndDate(ctx, row.ActiveLease.ID)
				}), err
			},
		},
		{
			name: StepSpawnFromNewLeases,
			selectItems: func(ctx context.Context, ex persistence.Executor, filter persistence.Filter) ([]workItem, error) {
				rows, err := parties.GetNewLeasesEligibleForActiveLease(ctx, ex, filter)

				return items(rows, p.startActiveLease), err
			},
		},
		{
			name:             StepSpawnFromRenewals,
			requiresRenewals: true,
			selectItems: func(ctx context.Context, ex persistence.Executor, filter persistence.Filter) ([]workItem, error) {
				rows, err := parties.GetRenewalsEligibleForActiveLease(ctx, ex, filter)

				return items(rows, p.startActiveLease), err
			},
		},
		{
			name:             StepSpawnRenewals,
			requiresRenewals: true,
			selectItems: func(ctx context.Context, ex persistence.Executor, filter persistence.Filter) ([]workItem, error) {
				rows, err := activeLeases.GetEligibleForRenewal(ctx, ex, filter)

				return items(rows, p.createRenewal), err
			},
		},
		{
			name: StepArchiveConvertedNewLeases,
			selectItems: func(ctx context.Context, ex persistence.Executor, filter persistence.Filter) ([]workItem, error) {
				rows, err := parties.GetPartiesWithActiveLeaseSuccessor(ctx, ex, filter, models.WorkflowNameNewLease)

				return items(rows, p.archiveConverted), err
			},
		},
		{
			name:             StepArchiveConvertedRenewals,
			requiresRenewals: true,
			selectItems: func(ctx context.Context, ex persistence.Executor, filter persistence.Filter) ([]workItem, error) {
				rows, err := parties.GetPartiesWithActiveLeaseSuccessor(ctx, ex, filter, models.WorkflowNameRenewal)

				return items(rows, p.archiveConverted), err
			},
		},
		{
			// A partial scope would make every lineage outside it look missing.
			name:         StepArchiveMissingFromSync,
			unscopedOnly: true,
			selectItems: func(ctx context.Context, ex persistence.Executor, filter persistence.Filter) ([]workItem, error) {
				rows, err := activeLeases.GetActiveLeasesMissingFromLatestSync(ctx, ex, filter)

				return items(rows, func(ctx context.Context, row *persistence.EligibleActiveLease) services.TransitionResult {
					return p.transitions.ArchiveActiveLeaseMissingFromSync(ctx, row.Party.ID)
				}), err
			},
		},
		{
			name: StepArchiveMoveInNotConfirmed,
			selectItems: func(ctx context.Context, ex persistence.Executor, filter persistence.Filter) ([]workItem, error) {
				rows, err := activeLeases.GetActiveLeasesWithMoveInNotConfirmed(ctx, ex, filter)

				return items(rows, func(ctx context.Context, row *persistence.EligibleActiveLease) services.TransitionResult {
					return p.transitions.ArchiveActiveLeaseMoveInNotConfirmed(ctx, row.Party.ID)
				}), err
			},
		},
	}
}

func (p *Processor) startActiveLease(ctx context.Context, row *persistence.EligibleSpawn) services.TransitionResult {
	return p.transitions.StartActiveLeaseWorkflow(ctx, services.StartActiveLeaseRequest{
		LeaseID:         row.Lease.ID,
		SeedPartyID:     row.Party.ID,
		Baseline:        row.Lease.BaselineData,
		ExternalLeaseID: row.Lease.ExternalLeaseID,
	})
}

func (p *Processor) createRenewal(ctx context.Context, row *persistence.EligibleActiveLease) services.TransitionResult {
	renewal, err := p.transitions.CreateRenewalParty(ctx, services.CreateRenewalRequest{SeedPartyID: row.Party.ID})
	if err != nil {
		return services.TransitionResult{Outcome: services.OutcomeFailed, PartyID: row.Party.ID, Err: err}
	}

	return services.TransitionResult{Outcome: services.OutcomeApplied, PartyID: renewal.ID}
}

func (p *Processor) archiveConverted(ctx context.Context, party *models.Party) services.TransitionResult {
	return p.transitions.ArchivePartyWithSuccessor(ctx, party.ID)
}
