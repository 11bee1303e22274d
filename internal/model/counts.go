package model

import "sort"

// RankedCount is one row of a ranked CountTable.
type RankedCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// CountTable holds per-artifact download counts and remembers the order in
// which artifact keys were first seen.
type CountTable struct {
	order  []string
	counts map[string]int
}

// NewCountTable returns an empty table.
func NewCountTable() *CountTable {
	return &CountTable{counts: make(map[string]int)}
}

// Inc adds one download to name.
func (c *CountTable) Inc(name string) {
	c.Add(name, 1)
}

// Add adds n downloads to name.
func (c *CountTable) Add(name string, n int) {
	if _, ok := c.counts[name]; !ok {
		c.order = append(c.order, name)
	}
	c.counts[name] += n
}

// Get returns the count for name and whether it is present.
func (c *CountTable) Get(name string) (int, bool) {
	n, ok := c.counts[name]
	return n, ok
}

// Len returns the number of distinct artifacts.
func (c *CountTable) Len() int {
	return len(c.order)
}

// Names returns artifact keys in first-encounter order.
func (c *CountTable) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Sum returns the sum of all counts.
func (c *CountTable) Sum() int {
	var total int
	for _, n := range c.counts {
		total += n
	}
	return total
}

// Entries returns the table in first-encounter order.
func (c *CountTable) Entries() []RankedCount {
	out := make([]RankedCount, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, RankedCount{Name: name, Count: c.counts[name]})
	}
	return out
}

// Ranked returns the table sorted by count descending. Ties keep encounter order.
func (c *CountTable) Ranked() []RankedCount {
	out := c.Entries()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// CountTableFrom rebuilds a table from entries, keeping their order.
func CountTableFrom(entries []RankedCount) *CountTable {
	c := NewCountTable()
	for _, e := range entries {
		c.Add(e.Name, e.Count)
	}
	return c
}
