package models

import "github.com/oklog/ulid/v2"

// NewID 生成按时间递增的 26 位 ULID
func NewID() string {
	return ulid.Make().String()
}
