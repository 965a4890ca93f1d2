package project

import (
	"github.com/luminahq/lumina/internal/vars"
)

func (p *Project) environmentLocked(id string) (*vars.Environment, bool) {
	if id == GlobalEnvID || id == p.env.Global().ID {
		return p.env.Global(), true
	}
	return p.env.Get(id)
}

func (p *Project) Environments() []*vars.Environment {
	p.mu.RLock()
	defer p.mu.RUnlock()
	envs := p.env.Environments()
	out := make([]*vars.Environment, 0, len(envs))
	for _, env := range envs {
		out = append(out, env.Clone())
	}
	return out
}

// Environment looks up a user environment, or the global one for GlobalEnvID.
func (p *Project) Environment(id string) (*vars.Environment, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	env, ok := p.environmentLocked(id)
	if !ok {
		return nil, false
	}
	return env.Clone(), true
}

func (p *Project) GlobalEnvironment() *vars.Environment {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.env.Global().Clone()
}

func (p *Project) AddEnvironment(env *vars.Environment) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.env.Add(env)
}

// UpdateEnvironment runs fn on the stored environment. The id never
// changes, and neither does the name of the global environment.
func (p *Project) UpdateEnvironment(id string, fn func(*vars.Environment)) (*vars.Environment, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	env, ok := p.environmentLocked(id)
	if !ok {
		return nil, false
	}
	prevID, prevName := env.ID, env.Name
	fn(env)
	env.ID = prevID
	if env == p.env.Global() {
		env.Name = prevName
	}
	return env.Clone(), true
}

func (p *Project) RemoveEnvironment(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.env.Remove(id)
}

// SetActiveEnvironment selects id, or clears the selection when id is empty.
func (p *Project) SetActiveEnvironment(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if id == "" {
		p.env.ClearActive()
		return true
	}
	return p.env.SetActive(id)
}

func (p *Project) ActiveEnvironment() (*vars.Environment, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	env, ok := p.env.Active()
	if !ok {
		return nil, false
	}
	return env.Clone(), true
}

func (p *Project) EffectiveValue(key, def string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.env.EffectiveValue(key, def)
}

func (p *Project) Variables() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.env.Flatten()
}
