package listview

// Podium is the top-three layout of a ranked list: rank 1 in the center,
// rank 2 on the left and rank 3 on the right. Missing ranks are nil.
type Podium[T any] struct {
	Left   *Place[T]
	Center *Place[T]
	Right  *Place[T]
}

// Place is one podium position.
type Place[T any] struct {
	Rank  int
	Medal string
	Item  T
}

var medals = [3]string{"gold", "silver", "bronze"}

// Empty reports whether no podium position is filled.
func (p Podium[T]) Empty() bool {
	return p.Center == nil && p.Left == nil && p.Right == nil
}

// SplitPodium takes the first three items, in the order given, as ranks 1-3
// and returns the remainder. Items are not re-sorted.
func SplitPodium[T any](items []T) (Podium[T], []T) {
	var p Podium[T]
	n := min(len(items), 3)
	for i := 0; i < n; i++ {
		place := &Place[T]{Rank: i + 1, Medal: medals[i], Item: items[i]}
		switch i {
		case 0:
			p.Center = place
		case 1:
			p.Left = place
		case 2:
			p.Right = place
		}
	}
	return p, items[n:]
}
