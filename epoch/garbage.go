package epoch

import "sync/atomic"

// generations is the number of bags. An entry retired at epoch E is safe once
// the global epoch reaches E+2, so three generations are live at any time.
const generations = 3

// garbage is a deferred destructor tagged with the global epoch at retirement.
type garbage struct {
	epoch   uint64
	destroy func()
	next    *garbage
}

// bag is a lock-free intrusive list of garbage for one generation.
type bag struct {
	head atomic.Pointer[garbage]
}

func (b *bag) push(g *garbage) {
	for {
		head := b.head.Load()
		g.next = head
		if b.head.CompareAndSwap(head, g) {
			return
		}
	}
}

// take detaches the whole list. The caller owns every entry it returns.
func (b *bag) take() *garbage {
	return b.head.Swap(nil)
}
