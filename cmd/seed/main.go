package main

import (
	"fmt"

	"github.com/spinshop/internal/config"
	"github.com/spinshop/internal/logger"
	"github.com/spinshop/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 添加流派
	genres := []models.Genre{
		{Slug: "jazz", Name: "爵士", SortOrder: 300},
		{Slug: "rock", Name: "摇滚", SortOrder: 200},
		{Slug: "classical", Name: "古典", SortOrder: 100},
	}

	for _, genre := range genres {
		var existing models.Genre
		if err := models.DB.Where("slug = ?", genre.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&genre).Error; err != nil {
				stdLog.Printf("Failed to create genre %s: %v", genre.Slug, err)
			} else {
				stdLog.Printf("Created genre: %s", genre.Slug)
			}
		} else {
			stdLog.Printf("Genre already exists: %s", genre.Slug)
		}
	}

	// 获取流派ID
	genreIDs := map[string]uint{}
	var genreList []models.Genre
	if err := models.DB.Where("slug IN ?", []string{"jazz", "rock", "classical"}).Find(&genreList).Error; err != nil {
		stdLog.Printf("Failed to load genres: %v", err)
	}
	for _, genre := range genreList {
		genreIDs[genre.Slug] = genre.ID
	}
	jazzID := genreIDs["jazz"]
	rockID := genreIDs["rock"]
	classicalID := genreIDs["classical"]

	// 添加系列
	groups := []models.RecordGroup{
		{Slug: "blue-note-classics", Name: "Blue Note 经典", SortOrder: 300},
		{Slug: "british-invasion", Name: "英伦入侵", SortOrder: 200},
		{Slug: "deutsche-grammophon", Name: "DG 大禾花", SortOrder: 100},
	}

	for _, group := range groups {
		var existing models.RecordGroup
		if err := models.DB.Where("slug = ?", group.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&group).Error; err != nil {
				stdLog.Printf("Failed to create record group %s: %v", group.Slug, err)
			} else {
				stdLog.Printf("Created record group: %s", group.Slug)
			}
		} else {
			stdLog.Printf("Record group already exists: %s", group.Slug)
		}
	}

	groupIDs := map[string]uint{}
	var groupList []models.RecordGroup
	if err := models.DB.Where("slug IN ?", []string{"blue-note-classics", "british-invasion", "deutsche-grammophon"}).Find(&groupList).Error; err != nil {
		stdLog.Printf("Failed to load record groups: %v", err)
	}
	for _, group := range groupList {
		groupIDs[group.Slug] = group.ID
	}
	blueNoteID := groupIDs["blue-note-classics"]
	britishID := groupIDs["british-invasion"]
	dgID := groupIDs["deutsche-grammophon"]

	// 添加唱片
	records := []models.Record{
		{
			GenreID:       jazzID,
			RecordGroupID: &blueNoteID,
			Slug:          "kind-of-blue",
			Title:         "Kind of Blue",
			Artist:        "Miles Davis",
			ReleaseYear:   1959,
			Price:         models.NewMoneyFromDecimal(decimal.NewFromFloat(32.00)),
			Stock:         24,
			Tags:          models.StringArray([]string{"modal", "trumpet", "180g"}),
			CoverURL:      "https://images.unsplash.com/photo-1603048588665-791ca8aea617?w=800",
			SortOrder:     300,
		},
		{
			GenreID:       jazzID,
			RecordGroupID: &blueNoteID,
			Slug:          "blue-train",
			Title:         "Blue Train",
			Artist:        "John Coltrane",
			ReleaseYear:   1958,
			Price:         models.NewMoneyFromDecimal(decimal.NewFromFloat(28.50)),
			Stock:         16,
			Tags:          models.StringArray([]string{"hard-bop", "saxophone"}),
			CoverURL:      "https://images.unsplash.com/photo-1511671782779-c97d3d27a1d4?w=800",
			SortOrder:     290,
		},
		{
			GenreID:       rockID,
			RecordGroupID: &britishID,
			Slug:          "abbey-road",
			Title:         "Abbey Road",
			Artist:        "The Beatles",
			ReleaseYear:   1969,
			Price:         models.NewMoneyFromDecimal(decimal.NewFromFloat(36.00)),
			Stock:         40,
			Tags:          models.StringArray([]string{"remaster", "stereo"}),
			CoverURL:      "https://images.unsplash.com/photo-1514320291840-2e0a9bf2a9ae?w=800",
			SortOrder:     280,
		},
		{
			GenreID:     rockID,
			Slug:        "dark-side-of-the-moon",
			Title:       "The Dark Side of the Moon",
			Artist:      "Pink Floyd",
			ReleaseYear: 1973,
			Price:       models.NewMoneyFromDecimal(decimal.NewFromFloat(38.00)),
			Stock:       12,
			Tags:        models.StringArray([]string{"prog", "gatefold"}),
			CoverURL:    "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=800",
			SortOrder:   270,
		},
		{
			GenreID:       classicalID,
			RecordGroupID: &dgID,
			Slug:          "beethoven-symphony-9-karajan",
			Title:         "Beethoven: Symphony No. 9",
			Artist:        "Herbert von Karajan",
			ReleaseYear:   1963,
			Price:         models.NewMoneyFromDecimal(decimal.NewFromFloat(24.00)),
			Stock:         8,
			Tags:          models.StringArray([]string{"symphony", "mono"}),
			CoverURL:      "https://images.unsplash.com/photo-1507838153414-b4b713384a76?w=800",
			SortOrder:     260,
		},
		{
			GenreID:      classicalID,
			Slug:         "goldberg-variations-1955",
			Title:        "Bach: Goldberg Variations",
			Artist:       "Glenn Gould",
			ReleaseYear:  1955,
			Price:        models.NewMoneyFromDecimal(decimal.NewFromFloat(26.00)),
			Stock:        0,
			Discontinued: true,
			Tags:         models.StringArray([]string{"piano", "out-of-print"}),
			CoverURL:     "https://images.unsplash.com/photo-1520523839897-bd0b52f945a0?w=800",
			SortOrder:    250,
		},
	}

	for _, record := range records {
		if record.GenreID == 0 {
			stdLog.Printf("Skip record %s: genre_id missing", record.Slug)
			continue
		}
		var existing models.Record
		if err := models.DB.Where("slug = ?", record.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&record).Error; err != nil {
				stdLog.Printf("Failed to create record %s: %v", record.Slug, err)
			} else {
				stdLog.Printf("Created record: %s", record.Slug)
			}
		} else {
			existing.GenreID = record.GenreID
			existing.RecordGroupID = record.RecordGroupID
			existing.Title = record.Title
			existing.Artist = record.Artist
			existing.ReleaseYear = record.ReleaseYear
			existing.Price = record.Price
			existing.Discontinued = record.Discontinued
			existing.Tags = record.Tags
			existing.CoverURL = record.CoverURL
			existing.SortOrder = record.SortOrder
			// 库存不覆盖，避免把线上扣减过的库存冲回种子值
			if err := models.DB.Save(&existing).Error; err != nil {
				stdLog.Printf("Failed to update record %s: %v", record.Slug, err)
			} else {
				stdLog.Printf("Updated record: %s", record.Slug)
			}
		}
	}

	// 添加演示用户
	demoUsers := []struct {
		Email       string
		Password    string
		DisplayName string
	}{
		{Email: "demo@spinshop.local", Password: "Spinshop123", DisplayName: "demo"},
	}

	for _, demo := range demoUsers {
		var existing models.User
		if err := models.DB.Where("email = ?", demo.Email).First(&existing).Error; err != nil {
			hash, hashErr := bcrypt.GenerateFromPassword([]byte(demo.Password), bcrypt.DefaultCost)
			if hashErr != nil {
				stdLog.Printf("Failed to hash password for %s: %v", demo.Email, hashErr)
				continue
			}
			user := models.User{
				Email:        demo.Email,
				PasswordHash: string(hash),
				DisplayName:  demo.DisplayName,
				Role:         "user",
				Status:       "active",
			}
			if err := models.DB.Create(&user).Error; err != nil {
				stdLog.Printf("Failed to create user %s: %v", demo.Email, err)
			} else {
				stdLog.Printf("Created user: %s (password: %s)", demo.Email, demo.Password)
			}
		} else {
			stdLog.Printf("User already exists: %s", demo.Email)
		}
	}

	fmt.Println("\n✅ Test data created successfully!")
	fmt.Println("Summary:")
	fmt.Println("- 3 Genres")
	fmt.Println("- 3 Record groups")
	fmt.Println("- 6 Records (含 1 张停售唱片)")
	fmt.Println("- 1 Demo user")
}
