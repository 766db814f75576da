package core

import (
	"sort"
	"strings"
)

// Selection is the set of entity keys a run works on.
type Selection map[string]struct{}

func NewSelection(entities ...string) Selection {
	s := make(Selection, len(entities))
	for _, e := range entities {
		s.Add(e)
	}
	return s
}

// Add inserts entity, ignoring blank names.
func (s Selection) Add(entity string) {
	entity = strings.TrimSpace(entity)
	if entity == "" {
		return
	}
	s[entity] = struct{}{}
}

func (s Selection) Contains(entity string) bool {
	_, ok := s[entity]
	return ok
}

// Names returns the selected entities sorted.
func (s Selection) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
