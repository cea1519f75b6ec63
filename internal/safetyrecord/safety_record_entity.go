package safetyrecord

import (
	"time"

	"github.com/google/uuid"
)

const DefaultStrength = 120

// Areas yang boleh dipakai pada record.
const (
	AreaProductionFloor = "PRODUCTION_FLOOR"
	AreaWarehouse       = "WAREHOUSE"
	AreaMaintenance     = "MAINTENANCE"
	AreaOffice          = "OFFICE"
	AreaLoadingDock     = "LOADING_DOCK"
	AreaQualityControl  = "QUALITY_CONTROL"
	AreaShipping        = "SHIPPING"
	AreaReceiving       = "RECEIVING"
	AreaLaboratory      = "LABORATORY"
	AreaCafeteria       = "CAFETERIA"
)

var Areas = []string{
	AreaProductionFloor,
	AreaWarehouse,
	AreaMaintenance,
	AreaOffice,
	AreaLoadingDock,
	AreaQualityControl,
	AreaShipping,
	AreaReceiving,
	AreaLaboratory,
	AreaCafeteria,
}

func IsValidArea(area string) bool {
	for _, a := range Areas {
		if a == area {
			return true
		}
	}
	return false
}

type SafetyRecord struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Date          time.Time `gorm:"not null;index"`
	Area          string    `gorm:"type:varchar(32);not null;index"`
	Department    string    `gorm:"type:varchar(100);not null;index"`
	Name          string    `gorm:"type:varchar(100);not null"`
	SafetyShoes   bool      `gorm:"not null;default:false"`
	SafetyGlasses bool      `gorm:"not null;default:false"`
	SafetyJacket  bool      `gorm:"not null;default:false"`
	Strength      int       `gorm:"not null;default:120"`
	IsDefaulter   bool      `gorm:"not null;index"`
	CreatedBy     string    `gorm:"type:varchar(64);not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (SafetyRecord) TableName() string {
	return "safety_records"
}
