// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package recommend

// Extract converts raw interactions to weighted tuples. It never fails:
// unrecognised action kinds take the view weight. Repeated interactions on the
// same pair are kept; Aggregate collapses them.
func Extract(records []Interaction) []WeightedInteraction {
	out := make([]WeightedInteraction, len(records))
	for i, r := range records {
		out[i] = WeightedInteraction{
			UserID:    r.UserID,
			ItemID:    r.ItemID,
			Weight:    r.Action.Weight(),
			Timestamp: r.Timestamp,
		}
	}
	return out
}
