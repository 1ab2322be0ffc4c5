package seed

import (
	"time"

	"spruce/config"
	"spruce/internal/logger"
	. "spruce/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func Seed(db *gorm.DB, config config.Config, log logger.Logger) error {
	log = log.Function("seed")
	log.Info("Seeding development data")

	users := []User{
		{
			FirstName: "Admin",
			LastName:  "User",
			Email:     "admin@example.com",
			Role:      RoleAdmin,
		},
		{
			FirstName: "Hannah",
			LastName:  "Homeowner",
			Email:     "hannah@example.com",
			Role:      RoleHomeowner,
		},
		{
			FirstName: "Carlos",
			LastName:  "Cleaner",
			Email:     "carlos@example.com",
			Role:      RoleCleaner,
		},
	}

	for i := range users {
		var existing User
		if err := db.First(&existing, "email = ?", users[i].Email).Error; err == nil {
			users[i] = existing
			log.Info("User already exists", "email", existing.Email)
			continue
		}
		log.Info("Seeding user", "email", users[i].Email)
		if err := db.Create(&users[i]).Error; err != nil {
			return log.Err("failed to create user", err, "email", users[i].Email)
		}
	}

	homeowner := users[1]
	cleaner := users[2]

	home := Home{
		OwnerID:            homeowner.ID,
		AddressLine:        "12 Birch Lane",
		City:               "Madison",
		State:              "WI",
		PostalCode:         "53703",
		Bedrooms:           3,
		Bathrooms:          2,
		PreferredCleanerID: &cleaner.ID,
	}

	var existingHome Home
	if err := db.First(&existingHome, "owner_id = ?", homeowner.ID).Error; err == nil {
		home = existingHome
		log.Info("Home already exists", "homeID", home.ID)
	} else {
		log.Info("Seeding home", "address", home.AddressLine)
		if err := db.Create(&home).Error; err != nil {
			return log.Err("failed to create home", err)
		}
	}

	schedule := RecurringSchedule{
		CleanerID:  cleaner.ID,
		ClientID:   homeowner.ID,
		HomeID:     home.ID,
		Frequency:  FrequencyWeekly,
		DayOfWeek:  int(time.Monday),
		TimeWindow: "09:00-12:00",
		Price:      decimal.NewFromInt(120),
		StartDate:  time.Now().UTC().Truncate(24 * time.Hour),
		IsActive:   true,
	}

	var existingSchedule RecurringSchedule
	if err := db.First(&existingSchedule, "home_id = ?", home.ID).Error; err == nil {
		log.Info("Schedule already exists", "scheduleID", existingSchedule.ID)
		return nil
	}

	log.Info("Seeding recurring schedule", "homeID", home.ID)
	if err := db.Create(&schedule).Error; err != nil {
		return log.Err("failed to create recurring schedule", err)
	}

	return nil
}
