package service

import (
	"time"
)

func GetExpiresAt(createdAt string, expiresIn int64) time.Time {
	created, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		created = time.Now()
	}
	return created.Add(time.Duration(expiresIn) * time.Second)
}
