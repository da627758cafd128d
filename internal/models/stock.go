package models

import "time"

// TrackedStock maps to the `tracked_stocks` table.
type TrackedStock struct {
	Ticker    string    `gorm:"column:ticker;primaryKey;size:16" json:"ticker"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (TrackedStock) TableName() string {
	return "tracked_stocks"
}

// PriceDaily maps to the `prices_daily` table. Return1D is a percentage
// relative to the previous stored trading day.
type PriceDaily struct {
	Ticker   string    `gorm:"column:ticker;primaryKey;size:16" json:"ticker"`
	Date     time.Time `gorm:"column:date;primaryKey;type:date" json:"date"`
	Open     *float64  `gorm:"column:open" json:"open"`
	High     *float64  `gorm:"column:high" json:"high"`
	Low      *float64  `gorm:"column:low" json:"low"`
	Close    float64   `gorm:"column:close;not null" json:"close"`
	AdjClose float64   `gorm:"column:adj_close" json:"adj_close"`
	Volume   *int64    `gorm:"column:volume" json:"volume"`
	Return1D *float64  `gorm:"column:return_1d" json:"return_1d"`
}

func (PriceDaily) TableName() string {
	return "prices_daily"
}
