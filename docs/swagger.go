// Package docs Permit Map API.
//
// Сервис карты разрешений на застройку. Регионы разрешений Cary, Apex и
// Morrisville хранятся в PostGIS и отдаются как GeoJSON; серверные сессии
// карты держат состояние оверлея, маркеров и камеры для браузерного клиента.
//
// Основные возможности:
// - Коллекция регионов разрешений (GeoJSON)
// - Разрешения в точке и текстовый поиск
// - Сессии карты: фильтры по категориям и датам, палитра, клики, idle
// - Постановка импорта в очередь Redis Streams
// - Статистика по загруженным разрешениям
//
//	Schemes: http, https
//	BasePath: /
//	Version: 1.0.0
//
//	Consumes:
//	- application/json
//
//	Produces:
//	- application/json
//	- application/geo+json
//
// swagger:meta
package docs
