package sandbox

// NameEnv is a chained, immutable-from-below name environment: sandboxed
// code in a child scope can read everything bound in its ancestors but
// cannot mutate them, matching spec.md §4.B's "fresh environment chained
// off a shared read-only base" sandbox isolation rule.
type NameEnv struct {
	parent   *NameEnv
	bindings map[string]interface{}
}

// RootEnv returns an empty top-level environment, the base every config
// cascade and model execution is ultimately chained off.
func RootEnv() *NameEnv {
	return &NameEnv{bindings: make(map[string]interface{})}
}

// Child returns a new environment chained off e. Bindings made in the
// child never affect e.
func (e *NameEnv) Child() *NameEnv {
	return &NameEnv{parent: e, bindings: make(map[string]interface{})}
}

// Bind sets name in this environment's own frame.
func (e *NameEnv) Bind(name string, value interface{}) {
	e.bindings[name] = value
}

// Get looks up name starting at this frame and walking to the root,
// returning the nearest (most deeply nested) binding.
func (e *NameEnv) Get(name string) (interface{}, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.bindings[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Flatten merges every frame from root to leaf into one map, leaf bindings
// shadowing ancestor bindings of the same name. The result is a plain
// snapshot — mutating it never affects the environment.
func (e *NameEnv) Flatten() map[string]interface{} {
	chain := []*NameEnv{}
	for env := e; env != nil; env = env.parent {
		chain = append(chain, env)
	}
	out := make(map[string]interface{})
	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range chain[i].bindings {
			out[k] = v
		}
	}
	return out
}
