package solver

import (
	"fmt"
	"sort"

	"github.com/schedcu/residency-engine/internal/entity"
)

// eligible reports whether person may occupy slot: the rotation's
// qualifications are satisfied, the person carries no blocking absence
// over the block's date, and the person does not already hold another
// assignment on the same block.
func eligible(person *entity.Person, slot Slot, aux auxLookup, already map[entity.PersonID]map[entity.BlockID]bool) bool {
	if !slot.Rotation.Qualifications.Satisfies(person) {
		return false
	}
	if _, blocked := aux.BlockingAbsenceFor(person.ID, slot.Block.Date); blocked {
		return false
	}
	if already[person.ID][slot.Block.ID] {
		return false
	}
	return true
}

// auxLookup is the subset of constraint.AuxContext candidate selection
// needs, named locally so this file does not have to import
// constraint just for the method set.
type auxLookup interface {
	BlockingAbsenceFor(personID entity.PersonID, d entity.Date) (entity.Absence, bool)
}

// candidateStats tracks the running counters tie-breaking reads, kept
// local to a single solve so concurrent solves never share state.
type candidateStats struct {
	callCount      map[entity.PersonID]int
	rollingHours   map[entity.PersonID]float64
	careerNFWeeks  map[entity.PersonID]int
}

func newCandidateStats() *candidateStats {
	return &candidateStats{
		callCount:     map[entity.PersonID]int{},
		rollingHours:  map[entity.PersonID]float64{},
		careerNFWeeks: map[entity.PersonID]int{},
	}
}

// rankForCall orders candidates for a call-type slot: lowest call
// count, then lowest accumulated hours, then lexicographic person id.
// The call count is one total across all call types (seeded from
// SundayCallCount + WeekdayCallCount), not a count per call type, and
// the hours are those of the committed rows in range plus this solve's
// picks, not a 4-week window.
func (s *candidateStats) rankForCall(candidates []*entity.Person) {
	sort.SliceStable(candidates, func(i, j int) bool {
		pi, pj := candidates[i], candidates[j]
		ci, cj := s.callCount[pi.ID], s.callCount[pj.ID]
		if ci != cj {
			return ci < cj
		}
		hi, hj := s.rollingHours[pi.ID], s.rollingHours[pj.ID]
		if hi != hj {
			return hi < hj
		}
		return pi.ID.String() < pj.ID.String()
	})
}

// rankForNightFloat orders candidates for an NF rotation slot, the
// pairing that minimizes the person's total career NF weeks taking
// priority, falling back to the same hours/id tie-break.
func (s *candidateStats) rankForNightFloat(candidates []*entity.Person) {
	sort.SliceStable(candidates, func(i, j int) bool {
		pi, pj := candidates[i], candidates[j]
		ni, nj := s.careerNFWeeks[pi.ID], s.careerNFWeeks[pj.ID]
		if ni != nj {
			return ni < nj
		}
		hi, hj := s.rollingHours[pi.ID], s.rollingHours[pj.ID]
		if hi != hj {
			return hi < hj
		}
		return pi.ID.String() < pj.ID.String()
	})
}

// rankDefault orders candidates by the general equity tie-break: lowest
// cumulative hours, then lexicographic id, used for any slot without a
// more specific policy.
func (s *candidateStats) rankDefault(candidates []*entity.Person) {
	sort.SliceStable(candidates, func(i, j int) bool {
		pi, pj := candidates[i], candidates[j]
		hi, hj := s.rollingHours[pi.ID], s.rollingHours[pj.ID]
		if hi != hj {
			return hi < hj
		}
		return pi.ID.String() < pj.ID.String()
	})
}

func (s *candidateStats) record(personID entity.PersonID, hours float64, isCall bool, isNF bool) {
	s.rollingHours[personID] += hours
	if isCall {
		s.callCount[personID]++
	}
	if isNF {
		s.careerNFWeeks[personID]++
	}
}

// seedCandidateStats primes tie-break state from Problem.Existing (the
// committed rows already in range) plus each Person's cached call
// counters, so a rerun over a partially-filled range keeps ranking
// equity-aware rather than restarting from zero.
func seedCandidateStats(p Problem) *candidateStats {
	s := newCandidateStats()
	for _, person := range p.People {
		s.callCount[person.ID] = person.SundayCallCount + person.WeekdayCallCount
	}
	if p.Existing == nil {
		return s
	}
	nfWeeks := map[entity.PersonID]map[string]bool{}
	for _, a := range p.Existing.Assignments {
		block := p.Existing.Blocks[a.BlockID]
		rot := p.Existing.Rotations[a.RotationID]
		if block == nil || rot == nil {
			continue
		}
		hours := p.Aux.HourWeight(rot.Category)
		s.rollingHours[a.PersonID] += hours
		if rot.Category == entity.CategoryNightFloat {
			year, week := block.Date.ISOWeek()
			key := fmt.Sprintf("%d-%d", year, week)
			if nfWeeks[a.PersonID] == nil {
				nfWeeks[a.PersonID] = map[string]bool{}
			}
			nfWeeks[a.PersonID][key] = true
		}
	}
	for personID, weeks := range nfWeeks {
		s.careerNFWeeks[personID] = len(weeks)
	}
	return s
}
