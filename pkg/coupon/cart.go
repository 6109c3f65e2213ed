package coupon

// CartLine is one tier plus a quantity of at least one.
type CartLine struct {
	Tier     Tier
	Quantity int
}

// TotalPriceCents returns unit price times quantity for the line.
func (line CartLine) TotalPriceCents() PriceCents {
	return PriceCents(line.Tier.UnitPriceCents().Int64() * int64(line.Quantity))
}

// Cart accumulates tier line items ahead of a purchase.
// It holds at most one line per tier and is mutated by a single
// caller at a time; there is no internal locking.
type Cart struct {
	lines []CartLine
}

// NewCart returns an empty cart.
func NewCart() *Cart {
	return &Cart{}
}

// AddItem increments the existing line for the tier, or appends a
// new line with quantity one.
func (cart *Cart) AddItem(tier Tier) {
	for index := range cart.lines {
		if cart.lines[index].Tier == tier {
			cart.lines[index].Quantity++
			return
		}
	}
	cart.lines = append(cart.lines, CartLine{Tier: tier, Quantity: 1})
}

// RemoveItem drops the line at index. An out-of-range index is a no-op.
func (cart *Cart) RemoveItem(index int) {
	if index < 0 || index >= len(cart.lines) {
		return
	}
	cart.lines = append(cart.lines[:index], cart.lines[index+1:]...)
}

// UpdateQuantity sets the quantity of the line at index. Out-of-range
// indexes and non-positive quantities are silently ignored.
func (cart *Cart) UpdateQuantity(index int, quantity int) {
	if index < 0 || index >= len(cart.lines) || quantity <= 0 {
		return
	}
	cart.lines[index].Quantity = quantity
}

// TotalPriceCents sums the line totals.
func (cart *Cart) TotalPriceCents() PriceCents {
	var total int64
	for _, line := range cart.lines {
		total += line.TotalPriceCents().Int64()
	}
	return PriceCents(total)
}

// IsEmpty reports whether the cart has no lines.
func (cart *Cart) IsEmpty() bool {
	return len(cart.lines) == 0
}

// Clear drops all lines.
func (cart *Cart) Clear() {
	cart.lines = nil
}

// Lines returns a copy of the cart's lines.
func (cart *Cart) Lines() []CartLine {
	lines := make([]CartLine, len(cart.lines))
	copy(lines, cart.lines)
	return lines
}
