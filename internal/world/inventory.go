package world

// Inventory chains are byte-linked: an owner's CurrentInventory is the head,
// each item's NextInventory the tail link, and every carried item records
// its Owner. Entity indices beyond 0xFE cannot be carried.

// ItemBefore walks owner's chain and returns the entity linking to last: the
// owner itself when last is the head, the final item when last is NoLink or
// not found.
func (s *State) ItemBefore(owner, last uint8) uint8 {
	prev := owner
	for n := s.Live[owner].CurrentInventory; n != NoLink; n = s.Live[n].NextInventory {
		if n == last {
			break
		}
		prev = n
	}
	return prev
}

// AddToInventory links item after prev in owner's chain (at the head when
// prev is the owner).
func (s *State) AddToInventory(prev, item, owner uint8) {
	it := &s.Live[item]
	it.Owner = owner
	if prev == owner {
		it.NextInventory = s.Live[owner].CurrentInventory
		s.Live[owner].CurrentInventory = item
		return
	}
	it.NextInventory = s.Live[prev].NextInventory
	s.Live[prev].NextInventory = item
}

// RemoveFromInventory unlinks item, which follows prev in owner's chain.
func (s *State) RemoveFromInventory(prev, item, owner uint8) {
	it := &s.Live[item]
	it.Owner = NoLink
	if prev == owner {
		s.Live[owner].CurrentInventory = it.NextInventory
	} else {
		s.Live[prev].NextInventory = it.NextInventory
	}
	it.NextInventory = NoLink
}

// Reorder detaches item from its owner's chain, if it has one.
func (s *State) Reorder(item uint8) {
	owner := s.Live[item].Owner
	if owner == NoLink {
		return
	}
	s.Detach(owner, item)
}

// Detach unlinks item from owner's chain. Returns false when owner does not
// carry it.
func (s *State) Detach(owner, item uint8) bool {
	prev := s.ItemBefore(owner, item)
	if !s.linksTo(prev, owner, item) {
		return false
	}
	s.RemoveFromInventory(prev, item, owner)
	return true
}

// UpdateInventory hands item to owner, appending it to the end of owner's
// chain.
func (s *State) UpdateInventory(owner, item uint8) {
	if s.Live[item].Owner != NoLink {
		s.Reorder(item)
	}
	s.AddToInventory(s.ItemBefore(owner, NoLink), item, owner)
}

// SetCurrentInventoryObject moves item to the head of the player's chain.
// Returns false when the player does not carry it.
func (s *State) SetCurrentInventoryObject(item uint8) bool {
	prev := s.ItemBefore(0, item)
	if !s.linksTo(prev, 0, item) {
		return false
	}
	s.RemoveFromInventory(prev, item, 0)
	s.AddToInventory(0, item, 0)
	return true
}

// Inventory returns owner's items, head first.
func (s *State) Inventory(owner uint8) []uint8 {
	var items []uint8
	for n := s.Live[owner].CurrentInventory; n != NoLink && len(items) < len(s.Live); n = s.Live[n].NextInventory {
		items = append(items, n)
	}
	return items
}

func (s *State) linksTo(prev, owner, item uint8) bool {
	if prev == owner {
		return s.Live[owner].CurrentInventory == item
	}
	return s.Live[prev].NextInventory == item
}
