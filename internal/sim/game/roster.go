package game

import "sort"

// FounderID is the arena slot of the founder. The founder never departs.
const FounderID = 0

type Member struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Role         string  `json:"role"`
	Salary       float64 `json:"salary"`
	HiredWeek    int     `json:"hired_week"`
	DepartedWeek int     `json:"departed_week,omitempty"`
}

// Roster is an arena of every member ever hired. Ids are arena indexes and
// stay stable; Active and Departed are sorted index sets that only grow or
// move ids from one to the other.
type Roster struct {
	Members  []Member `json:"members"`
	Active   []int    `json:"active"`
	Departed []int    `json:"departed"`
}

func NewRoster(founder string, week int) Roster {
	return Roster{
		Members: []Member{{ID: FounderID, Name: founder, Role: "founder", HiredWeek: week}},
		Active:  []int{FounderID},
	}
}

func (r Roster) Clone() Roster {
	return Roster{
		Members:  append([]Member(nil), r.Members...),
		Active:   append([]int(nil), r.Active...),
		Departed: append([]int(nil), r.Departed...),
	}
}

func (r Roster) Size() int { return len(r.Active) }

func (r Roster) Member(id int) (Member, bool) {
	if id < 0 || id >= len(r.Members) {
		return Member{}, false
	}
	return r.Members[id], true
}

func (r Roster) IsActive(id int) bool {
	i := sort.SearchInts(r.Active, id)
	return i < len(r.Active) && r.Active[i] == id
}

// Hire appends a member and returns its id.
func (r *Roster) Hire(name, role string, salary float64, week int) int {
	id := len(r.Members)
	r.Members = append(r.Members, Member{ID: id, Name: name, Role: role, Salary: salary, HiredWeek: week})
	r.Active = append(r.Active, id)
	sort.Ints(r.Active)
	return id
}

// Depart moves an active member to the departed set. The founder and
// unknown ids are refused.
func (r *Roster) Depart(id, week int) (Member, bool) {
	if id == FounderID || !r.IsActive(id) {
		return Member{}, false
	}
	i := sort.SearchInts(r.Active, id)
	r.Active = append(r.Active[:i:i], r.Active[i+1:]...)
	r.Departed = append(r.Departed, id)
	sort.Ints(r.Departed)
	r.Members[id].DepartedWeek = week
	return r.Members[id], true
}

// LatestHire is the most recently hired active non-founder.
func (r Roster) LatestHire() (int, bool) {
	for i := len(r.Active) - 1; i >= 0; i-- {
		if r.Active[i] != FounderID {
			return r.Active[i], true
		}
	}
	return 0, false
}

func (r Roster) Payroll() float64 {
	var sum float64
	for _, id := range r.Active {
		sum += r.Members[id].Salary
	}
	return sum
}
