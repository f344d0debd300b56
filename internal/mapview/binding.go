package mapview

import (
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"

	"github.com/permit-map/internal/domain"
)

// Binding - внешний изменяемый объект состояния, через который ядро
// наблюдает colorOf, фильтры и выбранный список.
//
// Слушатели вызываются синхронно из сеттера (и один раз при подписке с
// old == nil). Слушатель не должен вызывать сеттеры Binding.
type Binding struct {
	notifyMu sync.Mutex // упорядочивает «изменение + уведомление»
	mu       sync.Mutex

	colorOf ColorFunc
	filters *domain.FilterState
	list    *domain.PermitList

	nextID         int
	colorWatchers  map[int]func(ColorFunc)
	filterWatchers map[int]func(newState, oldState *domain.FilterState)
	boundsWatchers map[int]func(newBounds, oldBounds *orb.Bound)
	listWatchers   map[int]func(newList, oldList []*domain.PermitItem)
}

// NewBinding создаёт пустой объект привязки
func NewBinding() *Binding {
	return &Binding{
		colorWatchers:  make(map[int]func(ColorFunc)),
		filterWatchers: make(map[int]func(newState, oldState *domain.FilterState)),
		boundsWatchers: make(map[int]func(newBounds, oldBounds *orb.Bound)),
		listWatchers:   make(map[int]func(newList, oldList []*domain.PermitItem)),
	}
}

func (b *Binding) ColorOf() ColorFunc {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.colorOf
}

// Filters возвращает текущий снимок фильтров (не изменять)
func (b *Binding) Filters() *domain.FilterState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filters
}

func (b *Binding) List() *domain.PermitList {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.list
}

// SetColorFunc устанавливает функцию цвета. Слушатели уведомляются всегда:
// функции несравнимы.
func (b *Binding) SetColorFunc(fn ColorFunc) {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()

	b.mu.Lock()
	b.colorOf = fn
	watchers := collect(b.colorWatchers)
	b.mu.Unlock()

	for _, w := range watchers {
		w(fn)
	}
}

// SetFilters заменяет состояние фильтров копией f. Уведомление только
// если значение действительно изменилось.
func (b *Binding) SetFilters(f *domain.FilterState) {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()

	next := f.Clone()

	b.mu.Lock()
	prev := b.filters
	if cmp.Equal(prev, next) {
		b.mu.Unlock()
		return
	}
	b.filters = next
	watchers := collect(b.filterWatchers)
	b.mu.Unlock()

	for _, w := range watchers {
		w(next, prev)
	}
}

// SetList заменяет выбранный список. Слушатели списка срабатывают при
// смене ссылки на список, слушатели охвата - при смене значения Bounds.
func (b *Binding) SetList(list *domain.PermitList) {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()

	b.mu.Lock()
	prev := b.list
	if prev == list {
		b.mu.Unlock()
		return
	}
	b.list = list
	boundsWatchers := collect(b.boundsWatchers)
	listWatchers := collect(b.listWatchers)
	b.mu.Unlock()

	prevBounds, nextBounds := listBounds(prev), listBounds(list)
	if !sameBounds(prevBounds, nextBounds) {
		for _, w := range boundsWatchers {
			w(nextBounds, prevBounds)
		}
	}

	prevPermits, nextPermits := listPermits(prev), listPermits(list)
	for _, w := range listWatchers {
		w(nextPermits, prevPermits)
	}
}

// WatchColor подписывает на изменения colorOf
func (b *Binding) WatchColor(fn func(ColorFunc)) Unsubscribe {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()

	b.mu.Lock()
	id := b.register()
	b.colorWatchers[id] = fn
	current := b.colorOf
	b.mu.Unlock()

	fn(current)
	return b.unsubscriber(func() { delete(b.colorWatchers, id) })
}

// WatchFilters подписывает на изменения фильтров (глубокое сравнение)
func (b *Binding) WatchFilters(fn func(newState, oldState *domain.FilterState)) Unsubscribe {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()

	b.mu.Lock()
	id := b.register()
	b.filterWatchers[id] = fn
	current := b.filters
	b.mu.Unlock()

	fn(current, nil)
	return b.unsubscriber(func() { delete(b.filterWatchers, id) })
}

// WatchBounds подписывает на смену list.bounds
func (b *Binding) WatchBounds(fn func(newBounds, oldBounds *orb.Bound)) Unsubscribe {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()

	b.mu.Lock()
	id := b.register()
	b.boundsWatchers[id] = fn
	current := listBounds(b.list)
	b.mu.Unlock()

	fn(current, nil)
	return b.unsubscriber(func() { delete(b.boundsWatchers, id) })
}

// WatchPermits подписывает на смену list.permits
func (b *Binding) WatchPermits(fn func(newList, oldList []*domain.PermitItem)) Unsubscribe {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()

	b.mu.Lock()
	id := b.register()
	b.listWatchers[id] = fn
	current := listPermits(b.list)
	b.mu.Unlock()

	fn(current, nil)
	return b.unsubscriber(func() { delete(b.listWatchers, id) })
}

// register вызывается под b.mu
func (b *Binding) register() int {
	b.nextID++
	return b.nextID
}

// unsubscriber берёт только b.mu, чтобы отписка из цикла сессии не
// блокировалась на идущем уведомлении.
func (b *Binding) unsubscriber(remove func()) Unsubscribe {
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			remove()
			b.mu.Unlock()
		})
	}
}

func collect[T any](m map[int]T) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func listBounds(l *domain.PermitList) *orb.Bound {
	if l == nil {
		return nil
	}
	return l.Bounds
}

func sameBounds(a, b *orb.Bound) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func listPermits(l *domain.PermitList) []*domain.PermitItem {
	if l == nil {
		return nil
	}
	return l.Permits
}

// PaletteColorFunc строит ColorFunc из таблицы категория -> цвет
func PaletteColorFunc(palette map[string]string, fallback string) ColorFunc {
	p := make(map[string]string, len(palette))
	for k, v := range palette {
		p[k] = v
	}
	return func(category string) string {
		if c, ok := p[category]; ok {
			return c
		}
		return fallback
	}
}
