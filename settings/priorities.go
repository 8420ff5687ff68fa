package settings

import (
	"sync"

	"github.com/minotaur-io/minotaur/errors"
)

// Built-in priority names, lowest to highest.
const (
	PriorityDefault = "default"
	PriorityUser    = "user"
	PriorityProject = "project"
	PriorityEnv     = "env"
	PriorityCmd     = "cmd"
)

var (
	prioritiesMu sync.RWMutex
	priorities   = map[string]int{
		PriorityDefault: 0,
		PriorityUser:    10,
		PriorityProject: 20,
		PriorityEnv:     30,
		PriorityCmd:     40,
	}
)

// RegisterPriority registers a custom priority name with the given rank.
// Registering an existing name overrides its rank.
func RegisterPriority(name string, rank int) {
	prioritiesMu.Lock()
	defer prioritiesMu.Unlock()
	priorities[name] = rank
}

// PriorityRank returns the numeric rank of a priority name.
func PriorityRank(name string) (int, error) {
	prioritiesMu.RLock()
	defer prioritiesMu.RUnlock()
	rank, ok := priorities[name]
	if !ok {
		return 0, errors.UnknownPriority(name)
	}
	return rank, nil
}
