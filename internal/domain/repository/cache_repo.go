package repository

import (
	"time"
)

// CacheRepository определяет методы кеширования и координации через Redis
type CacheRepository interface {
	Delete(key string) error
	// SetJSON и GetJSON кешируют структуры в JSON. Используются для
	// опубликованных активностей на студенческих маршрутах.
	SetJSON(key string, value interface{}, expiration time.Duration) error
	GetJSON(key string, dest interface{}) error
	// SetNX атомарно устанавливает ключ, только если он отсутствует.
	// Используется как лок при создании попытки (защита от двойного
	// создания при параллельных запросах).
	SetNX(key string, value interface{}, expiration time.Duration) (bool, error)
}
