// Package fixture holds the state a suite run carries from step to step:
// base variables, generated inputs and identifiers captured from responses.
package fixture

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

var ErrAlreadySet = errors.New("fixture already set")

// Context is owned by a single suite run and is not safe for concurrent use.
// Captured names move from unset to set once and are never cleared.
type Context struct {
	base     map[string]string
	captured map[string]string
	origin   map[string]string // captured name -> step that produced it
}

func New(base map[string]string) *Context {
	c := &Context{
		base:     make(map[string]string, len(base)),
		captured: map[string]string{},
		origin:   map[string]string{},
	}
	for k, v := range base {
		c.base[k] = v
	}
	return c
}

// Set stores a base value. Base values may be overwritten; captured ones may not.
func (c *Context) Set(key, val string) { c.base[key] = val }

// Capture records a value produced by step. Capturing the same name twice
// is an error, even with an equal value.
func (c *Context) Capture(key, val, step string) error {
	if prev, ok := c.origin[key]; ok {
		return fmt.Errorf("%w: %q (captured by %q)", ErrAlreadySet, key, prev)
	}
	c.captured[key] = val
	c.origin[key] = step
	return nil
}

func (c *Context) Lookup(key string) (string, bool) {
	if v, ok := c.captured[key]; ok {
		return v, true
	}
	v, ok := c.base[key]
	return v, ok
}

func (c *Context) IsCaptured(key string) bool {
	_, ok := c.captured[key]
	return ok
}

// Origin returns the step that captured key.
func (c *Context) Origin(key string) (string, bool) {
	s, ok := c.origin[key]
	return s, ok
}

// Int returns the value of key as an integer, or 0 when it is unset or not numeric.
func (c *Context) Int(key string) int {
	v, ok := c.Lookup(key)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// Captured lists captured names in sorted order.
func (c *Context) Captured() []string {
	out := make([]string, 0, len(c.captured))
	for k := range c.captured {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Snapshot merges base and captured values into a fresh map.
func (c *Context) Snapshot() map[string]string {
	out := make(map[string]string, len(c.base)+len(c.captured))
	for k, v := range c.base {
		out[k] = v
	}
	for k, v := range c.captured {
		out[k] = v
	}
	return out
}

func (c *Context) Clone() *Context {
	cp := New(c.base)
	for k, v := range c.captured {
		cp.captured[k] = v
		cp.origin[k] = c.origin[k]
	}
	return cp
}
