package stage

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// InventoryGroup is one named group in the configuration-management tool's
// YAML inventory: hosts keyed by name (values are per-host vars or null) and
// nested child groups.
type InventoryGroup struct {
	Hosts    map[string]interface{}    `yaml:"hosts"`
	Children map[string]InventoryGroup `yaml:"children"`
}

// Inventory is the declarative list of deployment hosts, in the same YAML
// shape the configuration-management tool consumes (top-level groups such as
// "all", each with hosts and children). The file is externally supplied and
// read-only to the pipeline; it is parsed here only to refuse a deploy
// against nothing, and passed to the tool verbatim.
type Inventory struct {
	Groups map[string]InventoryGroup
}

// Hosts returns all hosts across groups and nested children, deduplicated,
// in no given order.
func (inv *Inventory) Hosts() []string {
	seen := map[string]struct{}{}
	var out []string
	var walk func(g InventoryGroup)
	walk = func(g InventoryGroup) {
		for h := range g.Hosts {
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			out = append(out, h)
		}
		for _, c := range g.Children {
			walk(c)
		}
	}
	for _, g := range inv.Groups {
		walk(g)
	}
	return out
}

// LoadInventory reads and parses an inventory file. An inventory with no
// hosts is rejected: a deploy against nothing is always a configuration
// mistake.
func LoadInventory(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inventory %s: %w", path, err)
	}
	var groups map[string]InventoryGroup
	if err := yaml.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("parse inventory %s: %w", path, err)
	}
	inv := &Inventory{Groups: groups}
	if len(inv.Hosts()) == 0 {
		return nil, fmt.Errorf("inventory %s contains no hosts", path)
	}
	return inv, nil
}
