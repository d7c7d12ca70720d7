package taglink

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// BindSpec names a container and the tags expected beneath it.
type BindSpec struct {
	Namespace string
	Container string
	Tags      []string
}

// Binding maps each requested tag name to its resolved handle.
type Binding map[string]Tag

// Bind resolves a BindSpec against the session.  The container is first
// looked up directly and, failing that, by a case-insensitive scan of
// the root's children.  Tags are then matched by case-insensitive
// name.  Any missing name yields a *BindingError.
func Bind(ctx context.Context, s Session, spec BindSpec) (Binding, error) {
	c, err := s.Lookup(ctx, spec.Namespace, spec.Container)
	if err != nil {
		c, err = scanContainer(ctx, s, spec.Container)
		if err != nil {
			return nil, err
		}
	}

	children, err := c.Tags(ctx)
	if err != nil {
		return nil, transport("browse", spec.Container, err)
	}

	byName := make(map[string]Tag, len(children))
	found := make([]string, 0, len(children))
	for _, t := range children {
		byName[strings.ToLower(t.Name())] = t
		found = append(found, strings.ToLower(t.Name()))
	}
	sort.Strings(found)

	b := make(Binding, len(spec.Tags))
	missing := []string{}
	for _, name := range spec.Tags {
		t, ok := byName[strings.ToLower(name)]
		if !ok {
			missing = append(missing, name)
			continue
		}
		b[name] = t
	}
	if len(missing) > 0 {
		return nil, &BindingError{Container: spec.Container, Missing: missing, Found: found}
	}
	return b, nil
}

// BindExact resolves the container and each tag by namespace and
// exact name, with no fallback scanning.
func BindExact(ctx context.Context, s Session, spec BindSpec) (Binding, error) {
	c, err := s.Lookup(ctx, spec.Namespace, spec.Container)
	if errors.Is(err, ErrNotFound) {
		return nil, &BindingError{Container: spec.Container}
	} else if err != nil {
		return nil, transport("lookup", spec.Container, err)
	}

	b := make(Binding, len(spec.Tags))
	missing := []string{}
	for _, name := range spec.Tags {
		t, err := c.Tag(ctx, spec.Namespace, name)
		if errors.Is(err, ErrNotFound) {
			missing = append(missing, name)
			continue
		} else if err != nil {
			return nil, transport("lookup", name, err)
		}
		b[name] = t
	}
	if len(missing) > 0 {
		return nil, &BindingError{Container: spec.Container, Missing: missing}
	}
	return b, nil
}

// ReadAll reads the named tags in order.  It stops at the first
// failure so that callers never see values from a partial cycle.
func (b Binding) ReadAll(ctx context.Context, names ...string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, name := range names {
		t, ok := b[name]
		if !ok {
			return nil, &BindingError{Missing: []string{name}}
		}
		v, err := t.Read(ctx)
		if err != nil {
			return nil, transport("read", name, err)
		}
		out[i] = v
	}
	return out, nil
}

// WriteAll writes vals to the named tags in order, stopping at the
// first failure.
func (b Binding) WriteAll(ctx context.Context, names []string, vals []float64) error {
	for i, name := range names {
		t, ok := b[name]
		if !ok {
			return &BindingError{Missing: []string{name}}
		}
		if err := t.Write(ctx, vals[i]); err != nil {
			return transport("write", name, err)
		}
	}
	return nil
}

func scanContainer(ctx context.Context, s Session, name string) (Container, error) {
	all, err := s.Containers(ctx)
	if err != nil {
		return nil, transport("browse", "", err)
	}
	for _, c := range all {
		if strings.EqualFold(c.Name(), name) {
			return c, nil
		}
	}
	return nil, &BindingError{Container: name}
}
