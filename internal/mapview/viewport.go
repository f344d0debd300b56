package mapview

import "github.com/paulmach/orb"

// ViewportController центрирует камеру на новом охвате и анимирует
// «панорама, затем вписывание» по двум последовательным сигналам idle.
// Незавершённая анимация предыдущего охвата отменяется, поэтому
// одноразовые слушатели не накапливаются.
//
// Поверхность может снять слушатель idle до того, как его обработчик
// выполнится в цикле событий, и отписка такой вызов уже не остановит.
// Поэтому каждый охват получает своё поколение, а обработчики устаревшего
// поколения ничего не делают.
type ViewportController struct {
	surface Surface
	gen     uint64
	pan     Unsubscribe
	fit     Unsubscribe
}

func NewViewportController(surface Surface) *ViewportController {
	return &ViewportController{surface: surface}
}

// OnBoundsChanged реагирует на новый охват; nil - no-op
func (v *ViewportController) OnBoundsChanged(bounds *orb.Bound) {
	if bounds == nil {
		return
	}
	v.Cancel()
	gen := v.gen

	b := *bounds
	v.surface.SetCenter(b.Center())
	v.pan = v.surface.OnceIdle(func() {
		if v.gen != gen {
			return
		}
		v.pan = nil
		v.surface.PanToBounds(b)
		v.fit = v.surface.OnceIdle(func() {
			if v.gen != gen {
				return
			}
			v.fit = nil
			v.surface.FitBounds(b)
		})
	})
}

// Pending - число ожидающих одноразовых слушателей
func (v *ViewportController) Pending() int {
	n := 0
	if v.pan != nil {
		n++
	}
	if v.fit != nil {
		n++
	}
	return n
}

// Cancel снимает ожидающие слушатели и делает устаревшими уже
// поставленные в очередь обработчики
func (v *ViewportController) Cancel() {
	v.gen++
	if v.pan != nil {
		v.pan()
		v.pan = nil
	}
	if v.fit != nil {
		v.fit()
		v.fit = nil
	}
}
