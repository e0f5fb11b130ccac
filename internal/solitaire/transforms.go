package solitaire

// The four structural steps. Positions wrap: the slot after the rear is
// slot 0. The rear is a position, not a card, so after any step the rear is
// whatever card occupies the last slot.

// swapForward exchanges the card at slot i with its cyclic successor.
func (d *Deck) swapForward(i int) {
	j := (i + 1) % DeckSize
	d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
}

// MoveJokerA moves joker A one position down the cycle.
func (d *Deck) MoveJokerA() {
	i := d.indexOf(JokerA)
	if i < 0 {
		return
	}
	d.swapForward(i)
}

// MoveJokerB moves joker B two positions down the cycle. From the slot just
// above the rear it lands below the top card and the rear keeps its card.
func (d *Deck) MoveJokerB() {
	i := d.indexOf(JokerB)
	if i < 0 {
		return
	}
	if i == DeckSize-2 {
		copy(d.cards[2:DeckSize-1], d.cards[1:DeckSize-2])
		d.cards[1] = JokerB
		return
	}
	d.swapForward(i)
	d.swapForward((i + 1) % DeckSize)
}

// TripleCut swaps the run above the first joker with the run below the
// second joker; the jokers and the cards between them keep their order.
func (d *Deck) TripleCut() {
	first, second := -1, -1
	for i, c := range d.cards {
		if !c.IsJoker() {
			continue
		}
		if first < 0 {
			first = i
		} else {
			second = i
			break
		}
	}
	if second < 0 {
		return
	}
	// Runs (a) cards[:first] and (c) cards[second+1:] both empty.
	if first == 0 && second == DeckSize-1 {
		return
	}

	var out [DeckSize]Card
	n := copy(out[:], d.cards[second+1:])
	n += copy(out[n:], d.cards[first:second+1])
	copy(out[n:], d.cards[:first])
	d.cards = out
}

// CountCut moves the top v cards to just above the rear, where v is the
// rear card's value. A joker at the rear leaves the deck alone.
func (d *Deck) CountCut() {
	v := int(d.Rear())
	if Card(v).IsJoker() || v <= 0 {
		return
	}

	var out [DeckSize]Card
	n := copy(out[:], d.cards[v:DeckSize-1])
	n += copy(out[n:], d.cards[:v])
	out[n] = d.Rear()
	d.cards = out
}
