package chain

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
)

// slot is one named unit of persistent state.
type slot interface {
	encode() ([]byte, error)
	// decode parses data and returns a function installing it.
	decode(data []byte) (func(), error)
}

// Slot is the encoded form of a named storage slot.
type Slot struct {
	Name string
	Data []byte
}

type entry struct {
	Key   []byte
	Value []byte
}

// Map is a journaled key-value slot.
type Map[K comparable, V any] struct {
	c *Chain
	m map[K]V
}

// NewMap registers a map slot under name. Names are unique per chain.
func NewMap[K comparable, V any](c *Chain, name string) *Map[K, V] {
	m := &Map[K, V]{c: c, m: make(map[K]V)}
	c.register(name, m)
	return m
}

// Get returns the value stored under key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	v, ok := m.m[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Map[K, V]) Has(key K) bool {
	_, ok := m.m[key]
	return ok
}

// Set stores value under key. The previous value comes back if the
// enclosing transaction reverts.
func (m *Map[K, V]) Set(key K, value V) {
	prev, existed := m.m[key]
	m.c.record(func() {
		if existed {
			m.m[key] = prev
		} else {
			delete(m.m, key)
		}
	})
	m.m[key] = value
}

// Delete removes key, journaling the old value. Deleting a missing key is a no-op.
func (m *Map[K, V]) Delete(key K) {
	prev, existed := m.m[key]
	if !existed {
		return
	}
	m.c.record(func() { m.m[key] = prev })
	delete(m.m, key)
}

// Len is the number of entries.
func (m *Map[K, V]) Len() int {
	return len(m.m)
}

// Range calls fn for every entry in unspecified order until fn returns false.
func (m *Map[K, V]) Range(fn func(K, V) bool) {
	for k, v := range m.m {
		if !fn(k, v) {
			return
		}
	}
}

func (m *Map[K, V]) encode() ([]byte, error) {
	entries := make([]entry, 0, len(m.m))
	for k, v := range m.m {
		key, err := rlp.EncodeToBytes(k)
		if err != nil {
			return nil, err
		}
		value, err := rlp.EncodeToBytes(v)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{Key: key, Value: value})
	}
	sort.Slice(entries, func(i, j int) bool { return bytes.Compare(entries[i].Key, entries[j].Key) < 0 })
	return rlp.EncodeToBytes(entries)
}

func (m *Map[K, V]) decode(data []byte) (func(), error) {
	var entries []entry
	if err := rlp.DecodeBytes(data, &entries); err != nil {
		return nil, err
	}
	decoded := make(map[K]V, len(entries))
	for _, e := range entries {
		var k K
		if err := rlp.DecodeBytes(e.Key, &k); err != nil {
			return nil, fmt.Errorf("key: %w", err)
		}
		var v V
		if err := rlp.DecodeBytes(e.Value, &v); err != nil {
			return nil, fmt.Errorf("value: %w", err)
		}
		decoded[k] = v
	}
	return func() { m.m = decoded }, nil
}

// Value is a journaled single-value slot.
type Value[V any] struct {
	c *Chain
	v V
}

// NewValue registers a single-value slot under name.
func NewValue[V any](c *Chain, name string) *Value[V] {
	v := &Value[V]{c: c}
	c.register(name, v)
	return v
}

// Get returns the stored value, the zero value before the first Set.
func (v *Value[V]) Get() V {
	return v.v
}

// Set replaces the stored value, journaling the old one.
func (v *Value[V]) Set(value V) {
	prev := v.v
	v.c.record(func() { v.v = prev })
	v.v = value
}

func (v *Value[V]) encode() ([]byte, error) {
	return rlp.EncodeToBytes(v.v)
}

func (v *Value[V]) decode(data []byte) (func(), error) {
	var decoded V
	if err := rlp.DecodeBytes(data, &decoded); err != nil {
		return nil, err
	}
	return func() { v.v = decoded }, nil
}

// Snapshot encodes every named slot, ordered by name. It takes the shared
// lock and must not be called from inside Submit or View.
func (c *Chain) Snapshot() ([]Slot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.slots))
	for name := range c.slots {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Slot, 0, len(names))
	for _, name := range names {
		data, err := c.slots[name].encode()
		if err != nil {
			return nil, fmt.Errorf("encoding slot %s: %w", name, err)
		}
		out = append(out, Slot{Name: name, Data: data})
	}
	return out, nil
}

// Restore replaces the contents of the named slots. Either every slot decodes
// and is installed, or nothing changes. Slots missing from the input keep
// their current contents. It takes the exclusive lock and must not be called
// from inside Submit or View.
func (c *Chain) Restore(slots []Slot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	installs, err := c.decodeSlots(slots, nil)
	if err != nil {
		return err
	}
	for _, install := range installs {
		install()
	}
	return nil
}

// CheckRestore decodes slots without installing any of them. A slot that is
// not registered yet is decoded as the slot named by like, which returns ""
// when there is no stand-in. It takes the shared lock.
func (c *Chain) CheckRestore(slots []Slot, like func(name string) string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, err := c.decodeSlots(slots, like)
	return err
}

func (c *Chain) decodeSlots(slots []Slot, like func(string) string) ([]func(), error) {
	installs := make([]func(), 0, len(slots))
	for _, s := range slots {
		target, ok := c.slots[s.Name]
		if !ok && like != nil {
			target, ok = c.slots[like(s.Name)]
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSlot, s.Name)
		}
		install, err := target.decode(s.Data)
		if err != nil {
			return nil, fmt.Errorf("decoding slot %s: %w", s.Name, err)
		}
		installs = append(installs, install)
	}
	return installs, nil
}
