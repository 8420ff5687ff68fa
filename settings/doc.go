// Package settings implements the priority-layered settings store at the
// heart of the minotaur daemon.
//
// Every key holds candidate values at named priorities (default < user <
// project < env < cmd); reads always observe the highest-priority value, so
// a command-line override shadows an environment variable, which shadows the
// user's YAML file, which shadows the built-in defaults.
//
// Stores are frozen after construction. Configuration loading runs inside
// Unfreeze; afterwards the daemon treats settings as immutable.
//
//	store, _ := settings.New(settings.Defaults(), settings.PriorityDefault)
//	_ = store.Unfreeze(func(s *settings.Store) error {
//	    return s.Update(fromUserFile, settings.PriorityUser)
//	})
//	interval := store.GetDuration(settings.KeySchedulerInterval)
package settings
