package triage

import (
	"errors"
	"sort"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ErrNoQualifiedModerator signals that no moderator in the roster has
// any overlap with the required keywords. A deliberate terminal
// outcome, not a fault: a ticket must never be handed to an unrelated
// moderator just because they happen to be first in the roster.
var ErrNoQualifiedModerator = errors.New("no moderator with relevant skills available")

// ModeratorScore is the per-moderator result of one scoring pass.
type ModeratorScore struct {
	Moderator          domain.User
	DirectSkillMatches int
	KeywordMatches     int
	Score              int
	Matched            []string
	HasRelevantSkills  bool
}

// Score computes a match score for every moderator against the
// required keyword set and returns the ranking, best first. Two match
// tiers are counted separately:
//
//  1. direct: a verbatim lower-cased moderator skill that is an exact
//     element of the required set, weighted double;
//  2. keyword: any remaining required keyword that equals, contains,
//     or is contained in some moderator keyword.
//
// Ties are broken by moderator ID so ranking never depends on roster
// order coming out of storage.
func Score(requiredKeywords []string, moderators []domain.User) []ModeratorScore {
	scores := make([]ModeratorScore, 0, len(moderators))

	for _, mod := range moderators {
		skillsLower := make([]string, 0, len(mod.Skills))
		for _, s := range mod.Skills {
			skillsLower = append(skillsLower, strings.ToLower(s))
		}

		moderatorKeywords := append([]string{}, skillsLower...)
		for _, s := range skillsLower {
			moderatorKeywords = append(moderatorKeywords, Extract(s)...)
		}

		matched := map[string]struct{}{}
		direct := 0
		for _, skill := range skillsLower {
			if contains(requiredKeywords, skill) {
				if _, ok := matched[skill]; !ok {
					matched[skill] = struct{}{}
					direct++
				}
			}
		}

		keyword := 0
		for _, kw := range requiredKeywords {
			if _, ok := matched[kw]; ok {
				continue
			}
			if matchesAny(kw, moderatorKeywords) {
				matched[kw] = struct{}{}
				keyword++
			}
		}

		score := direct*2 + keyword
		matchedList := make([]string, 0, len(matched))
		for m := range matched {
			matchedList = append(matchedList, m)
		}
		sort.Strings(matchedList)

		scores = append(scores, ModeratorScore{
			Moderator:          mod,
			DirectSkillMatches: direct,
			KeywordMatches:     keyword,
			Score:              score,
			Matched:            matchedList,
			HasRelevantSkills:  score > 0,
		})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Moderator.ID < scores[j].Moderator.ID
	})

	return scores
}

// Select runs Score and picks the top-ranked moderator, or returns
// ErrNoQualifiedModerator when the roster is empty or the best score
// is zero.
func Select(requiredKeywords []string, moderators []domain.User) (*ModeratorScore, error) {
	scores := Score(requiredKeywords, moderators)
	if len(scores) == 0 {
		return nil, ErrNoQualifiedModerator
	}
	best := scores[0]
	if !best.HasRelevantSkills {
		return nil, ErrNoQualifiedModerator
	}
	return &best, nil
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// matchesAny reports whether kw equals, is a substring of, or contains
// any moderator keyword. Substring containment in both directions is a
// deliberately crude similarity proxy; tightening it would change
// matching behavior.
func matchesAny(kw string, moderatorKeywords []string) bool {
	for _, mk := range moderatorKeywords {
		if mk == kw || strings.Contains(mk, kw) || strings.Contains(kw, mk) {
			return true
		}
	}
	return false
}
