package utils

import (
	"log"
	"math"

	"github.com/joho/godotenv"

	"gorm.io/gorm"
)

func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		// Don't fail if .env file doesn't exist
		// Environment variables can be provided via Docker Compose or system
		log.Println("Info: .env file not found, using system environment variables")
	}
}

// Paginate runs a counted, ordered page query. The caller passes a query
// with its model and filters already applied; anything past the last page
// just returns empty results rather than an error, so clients can page
// blindly.
func Paginate(query *gorm.DB, item interface{}, pageNumber, limit int, order string) (int, error) {
	if pageNumber <= 0 {
		pageNumber = 1
	}

	var totalCount int64
	if err := query.Count(&totalCount).Error; err != nil {
		return 0, err
	}

	totalPages := int(math.Ceil(float64(totalCount) / float64(limit)))
	offset := (pageNumber - 1) * limit

	if err := query.Order(order).Limit(limit).Offset(offset).Find(item).Error; err != nil {
		return 0, err
	}
	return totalPages, nil
}
