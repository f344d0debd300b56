package mapview

import "errors"

var (
	// ErrNotLoaded - данные регионов ещё не загружены (или загрузка упала)
	ErrNotLoaded = errors.New("regions not loaded")

	// ErrSessionClosed - сессия закрыта
	ErrSessionClosed = errors.New("map session closed")
)
