package app

import (
	"sync"

	"millionaire-quiz-service/internal/domain"
)

// feed fans game updates out to subscribers of that game.
type feed struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.Game]struct{}
}

func newFeed() *feed {
	return &feed{subscribers: make(map[string]map[chan domain.Game]struct{})}
}

func (f *feed) subscribe(initial domain.Game) (<-chan domain.Game, func()) {
	ch := make(chan domain.Game, 8)
	ch <- initial

	f.mu.Lock()
	subs, ok := f.subscribers[initial.ID]
	if !ok {
		subs = make(map[chan domain.Game]struct{})
		f.subscribers[initial.ID] = subs
	}
	subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		subs, ok := f.subscribers[initial.ID]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(f.subscribers, initial.ID)
		}
	}
	return ch, cancel
}

func (f *feed) publish(g domain.Game) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers[g.ID] {
		select {
		case ch <- g:
		default:
			// full buffer: drop the oldest update so slow readers never block writers
			select {
			case <-ch:
			default:
			}
			ch <- g
		}
	}
}
