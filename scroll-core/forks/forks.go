package forks

import "fmt"

// Name identifies a Scroll hardfork by name.
type Name string

const (
	// Shanghai is the base-protocol rule set the chain launched with.
	Shanghai  Name = "shanghai"
	Bernoulli Name = "bernoulli"
	Curie     Name = "curie"
	Darwin    Name = "darwin"
	DarwinV2  Name = "darwinV2"
	// ADD NEW FORKS TO All BELOW!
	None Name = ""
)

// All lists all known forks in chronological order.
var All = []Name{
	Shanghai,
	Bernoulli,
	Curie,
	Darwin,
	DarwinV2,
	// ADD NEW FORKS HERE!
}

// Latest returns the most recent fork in All.
var Latest = All[len(All)-1]

// From returns the list of forks starting from the provided fork, inclusive.
func From(start Name) []Name {
	for i, f := range All {
		if f == start {
			return All[i:]
		}
	}
	panic(fmt.Sprintf("invalid fork: %s", start))
}

var next = func() map[Name]Name {
	m := make(map[Name]Name, len(All))
	for i, f := range All {
		if i == len(All)-1 {
			m[f] = None
			break
		}
		m[f] = All[i+1]
	}
	return m
}()

// IsValid returns true if the provided fork is a known fork.
func IsValid(f Name) bool {
	_, ok := next[f]
	return ok
}

// Next returns the fork that follows the provided fork, or None if it is the last.
func Next(f Name) Name { return next[f] }

// SpecID is the ordered rule-set identifier handed to the EVM. Later forks compare greater.
type SpecID uint8

const (
	SpecShanghai SpecID = iota
	SpecBernoulli
	SpecCurie
	SpecDarwin
	SpecDarwinV2
)

var specNames = [...]Name{
	SpecShanghai:  Shanghai,
	SpecBernoulli: Bernoulli,
	SpecCurie:     Curie,
	SpecDarwin:    Darwin,
	SpecDarwinV2:  DarwinV2,
}

// Name returns the fork that introduced the rule set.
func (s SpecID) Name() Name {
	if int(s) >= len(specNames) {
		return None
	}
	return specNames[s]
}

func (s SpecID) String() string {
	if n := s.Name(); n != None {
		return string(n)
	}
	return fmt.Sprintf("SpecID(%d)", uint8(s))
}

// IsEnabledIn reports whether the rules of fork are part of s.
func (s SpecID) IsEnabledIn(fork SpecID) bool {
	return s >= fork
}

// SpecFor returns the SpecID introduced by the named fork.
func SpecFor(f Name) (SpecID, error) {
	for i, n := range specNames {
		if n == f {
			return SpecID(i), nil
		}
	}
	return 0, fmt.Errorf("unknown fork %q", f)
}
