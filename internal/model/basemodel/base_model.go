package basemodel

import "time"

// BaseModel 提供统一的基础字段：ID、CreatedAt、UpdatedAt。
//  1. ID 为自增主键，业务主键(assessment_id / alert_id)另建唯一索引。
//  2. CreatedAt/UpdatedAt 由 GORM 自动维护。
type BaseModel struct {
	ID        uint64    `json:"id" gorm:"primaryKey;autoIncrement;comment:主键ID"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;comment:创建时间"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime;comment:更新时间"`
}
