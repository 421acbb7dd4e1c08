package pm

import "github.com/daxcore/dax/pkg/models"

// Merge computes next = merge(current, update) per spec.md §4.6:
// Constraints and Preferences are deep-merged field by field,
// RecentOutcomes and RAO are replaced wholesale whenever the update
// supplies a non-nil slice, and Charter is replaced when non-empty.
// ProjectID and LastUpdated are left for the caller to stamp.
func Merge(current, update models.ProjectMemory) models.ProjectMemory {
	next := current

	if update.Charter != "" {
		next.Charter = update.Charter
	}

	next.Constraints = mergeConstraints(current.Constraints, update.Constraints)
	next.Preferences = mergePreferences(current.Preferences, update.Preferences)

	if update.RecentOutcomes != nil {
		outcomes := update.RecentOutcomes
		if len(outcomes) > models.MaxRecentOutcomes {
			outcomes = outcomes[len(outcomes)-models.MaxRecentOutcomes:]
		}
		next.RecentOutcomes = outcomes
	}
	if update.RAO != nil {
		rao := update.RAO
		if len(rao) > models.MaxRAOHistory {
			rao = rao[len(rao)-models.MaxRAOHistory:]
		}
		next.RAO = rao
	}

	return next
}

func mergeConstraints(current, update models.Constraints) models.Constraints {
	next := current
	if update.NeverTouch != nil {
		next.NeverTouch = update.NeverTouch
	}
	if update.RequireApprovalFor != nil {
		next.RequireApprovalFor = update.RequireApprovalFor
	}
	if update.AlwaysAllow != nil {
		next.AlwaysAllow = update.AlwaysAllow
	}
	if update.MaxFiles != nil {
		next.MaxFiles = update.MaxFiles
	}
	if update.MaxLOC != nil {
		next.MaxLOC = update.MaxLOC
	}
	if update.RequireApprovalForScopeExpand {
		next.RequireApprovalForScopeExpand = true
	}
	return next
}

func mergePreferences(current, update models.Preferences) models.Preferences {
	next := current
	if update.Risk != "" {
		next.Risk = update.Risk
	}
	if update.Verbosity != "" {
		next.Verbosity = update.Verbosity
	}
	if update.ExplainBeforeEdit {
		next.ExplainBeforeEdit = true
	}
	if update.PlanBeforeTools {
		next.PlanBeforeTools = true
	}
	return next
}
