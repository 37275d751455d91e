package models

import "time"

// User представляет зарегистрированного покупателя или администратора
type User struct {
	ID        int64
	Email     string
	PassHash  []byte
	CreatedAt time.Time
}
