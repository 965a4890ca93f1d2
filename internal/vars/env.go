package vars

import (
	"maps"
	"slices"

	"github.com/google/uuid"
)

const GlobalName = "Global"

type Environment struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Variables map[string]string `json:"variables"`
}

func NewEnvironment(name string, variables map[string]string) *Environment {
	if name == "" {
		name = "New Environment"
	}
	env := &Environment{ID: uuid.NewString(), Name: name, Variables: map[string]string{}}
	maps.Copy(env.Variables, variables)
	return env
}

// Get returns the value for key, or def when the key is not defined.
func (e *Environment) Get(key, def string) string {
	if e == nil {
		return def
	}
	if v, ok := e.Variables[key]; ok {
		return v
	}
	return def
}

func (e *Environment) Set(key, value string) {
	if e.Variables == nil {
		e.Variables = map[string]string{}
	}
	e.Variables[key] = value
}

func (e *Environment) Delete(key string) bool {
	if _, ok := e.Variables[key]; !ok {
		return false
	}
	delete(e.Variables, key)
	return true
}

func (e *Environment) Keys() []string {
	return slices.Sorted(maps.Keys(e.Variables))
}

func (e *Environment) Clone() *Environment {
	if e == nil {
		return nil
	}
	out := &Environment{ID: e.ID, Name: e.Name, Variables: make(map[string]string, len(e.Variables))}
	maps.Copy(out.Variables, e.Variables)
	return out
}

// Store holds the global environment plus user environments, at most one of
// which is active. It carries no lock of its own: the owning project guards it.
type Store struct {
	global   *Environment
	envs     []*Environment
	activeID string
}

func NewStore() *Store {
	return &Store{global: NewEnvironment(GlobalName, nil)}
}

func (s *Store) Global() *Environment { return s.global }

func (s *Store) Environments() []*Environment { return s.envs }

func (s *Store) Add(env *Environment) {
	s.envs = append(s.envs, env)
}

func (s *Store) Get(id string) (*Environment, bool) {
	for _, env := range s.envs {
		if env.ID == id {
			return env, true
		}
	}
	return nil, false
}

// Remove deletes an environment and clears the active selection if it
// pointed at it. The global environment cannot be removed.
func (s *Store) Remove(id string) bool {
	for i, env := range s.envs {
		if env.ID != id {
			continue
		}
		if s.activeID == id {
			s.activeID = ""
		}
		s.envs = slices.Delete(s.envs, i, i+1)
		return true
	}
	return false
}

// SetActive selects an environment. Unknown ids leave the selection as is.
func (s *Store) SetActive(id string) bool {
	if _, ok := s.Get(id); !ok {
		return false
	}
	s.activeID = id
	return true
}

func (s *Store) ClearActive() { s.activeID = "" }

func (s *Store) Active() (*Environment, bool) {
	if s.activeID == "" {
		return nil, false
	}
	return s.Get(s.activeID)
}

func (s *Store) ActiveID() string { return s.activeID }

// EffectiveValue returns the active environment's value for key when it is
// non-empty, else the global value, else def. An active value of "" falls
// through to global.
func (s *Store) EffectiveValue(key, def string) string {
	if active, ok := s.Active(); ok {
		if v := active.Get(key, ""); v != "" {
			return v
		}
	}
	return s.global.Get(key, def)
}

// Flatten builds the lookup map used for substitution, applying
// EffectiveValue to every key known to the active or global environment.
func (s *Store) Flatten() map[string]string {
	out := make(map[string]string, len(s.global.Variables))
	for key := range s.global.Variables {
		out[key] = s.EffectiveValue(key, "")
	}
	if active, ok := s.Active(); ok {
		for key := range active.Variables {
			out[key] = s.EffectiveValue(key, "")
		}
	}
	return out
}

func (s *Store) Clone() *Store {
	out := &Store{global: s.global.Clone(), activeID: s.activeID}
	out.envs = make([]*Environment, 0, len(s.envs))
	for _, env := range s.envs {
		out.envs = append(out.envs, env.Clone())
	}
	return out
}

// State is the persisted form of a Store.
type State struct {
	Environments []*Environment `json:"environments"`
	ActiveID     *string        `json:"active_environment_id"`
	Global       *Environment   `json:"global_environment"`
}

func (s *Store) State() State {
	clone := s.Clone()
	st := State{Environments: clone.envs, Global: clone.global}
	if clone.activeID != "" {
		id := clone.activeID
		st.ActiveID = &id
	}
	return st
}

// StoreFromState rebuilds a Store. A missing global environment is replaced by
// an empty one; an active id that matches nothing is dropped.
func StoreFromState(st State) *Store {
	s := NewStore()
	if st.Global != nil {
		s.global = st.Global.Clone()
		if s.global.ID == "" {
			s.global.ID = uuid.NewString()
		}
		if s.global.Name == "" {
			s.global.Name = GlobalName
		}
	}
	for _, env := range st.Environments {
		if env == nil {
			continue
		}
		c := env.Clone()
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if c.Variables == nil {
			c.Variables = map[string]string{}
		}
		s.envs = append(s.envs, c)
	}
	if st.ActiveID != nil {
		s.SetActive(*st.ActiveID)
	}
	return s
}
