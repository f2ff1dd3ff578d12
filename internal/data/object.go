package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Descriptor is one record of an object node's behavior script.
type Descriptor struct {
	Type      uint16 `yaml:"type"` // obj_type this record applies to
	DX        int8   `yaml:"dx"`
	DY        int8   `yaml:"dy"`
	NextType  uint16 `yaml:"next_type"`
	NextIndex uint16 `yaml:"next_index"`
	Op1       uint8  `yaml:"op1"`
	Op2       uint8  `yaml:"op2"`
	Op3       uint8  `yaml:"op3"`
	Arg1      int16  `yaml:"arg1"`
	Arg2      int16  `yaml:"arg2"`
	Arg3      int16  `yaml:"arg3"`
	Flags     uint8  `yaml:"flags"` // high nibble: score table index; low nibble: effect bits
}

// Descriptor effect bits (low nibble of Descriptor.Flags).
const (
	DescToggleFacing uint8 = 0x01
	DescLoseLife     uint8 = 0x02
	DescGainLife     uint8 = 0x04
	DescKill         uint8 = 0x08
)

// ObjectNode is the ordered descriptor list shared by every entity whose
// template names this node.
type ObjectNode struct {
	ID          uint16       `yaml:"id"`
	Aliases     []uint16     `yaml:"aliases"`  // further node ids resolving to this node
	LastObj     uint16       `yaml:"last_obj"` // scan bound used by group lookups; 0 = len(descriptors)
	Descriptors []Descriptor `yaml:"descriptors"`
}

// Len returns the number of descriptors.
func (n *ObjectNode) Len() int { return len(n.Descriptors) }

// At returns descriptor i, or nil past the end.
func (n *ObjectNode) At(i int) *Descriptor {
	if i < 0 || i >= len(n.Descriptors) {
		return nil
	}
	return &n.Descriptors[i]
}

// FirstOfType returns the index of the first descriptor matching objType.
func (n *ObjectNode) FirstOfType(objType uint16) (int, bool) {
	for i := range n.Descriptors {
		if n.Descriptors[i].Type == objType {
			return i, true
		}
	}
	return 0, false
}

type objectListFile struct {
	Nodes []ObjectNode `yaml:"nodes"`
}

// LoadObjectNodes loads object nodes and returns them indexed by node id.
// Alias ids share the node pointer.
func LoadObjectNodes(path string) ([]*ObjectNode, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read objects %s: %w", path, err)
	}
	var f objectListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse objects %s: %w", path, err)
	}
	return indexNodes(f.Nodes)
}

func indexNodes(nodes []ObjectNode) ([]*ObjectNode, error) {
	maxID := -1
	for i := range nodes {
		ids := append([]uint16{nodes[i].ID}, nodes[i].Aliases...)
		for _, id := range ids {
			if int(id) > maxID {
				maxID = int(id)
			}
		}
	}
	out := make([]*ObjectNode, maxID+1)
	for i := range nodes {
		n := &nodes[i]
		if n.LastObj == 0 {
			n.LastObj = uint16(len(n.Descriptors))
		}
		ids := append([]uint16{n.ID}, n.Aliases...)
		for _, id := range ids {
			if out[id] != nil {
				return nil, fmt.Errorf("object node %d defined twice", id)
			}
			out[id] = n
		}
	}
	for id, n := range out {
		if n == nil {
			return nil, fmt.Errorf("object node %d missing (ids must be dense)", id)
		}
	}
	return out, nil
}
