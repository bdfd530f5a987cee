package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/infotechopyra0-del/occult369-sub000/internal/auth"
	"github.com/infotechopyra0-del/occult369-sub000/internal/config"
	"github.com/infotechopyra0-del/occult369-sub000/internal/db"
	"github.com/infotechopyra0-del/occult369-sub000/internal/models"
	"github.com/infotechopyra0-del/occult369-sub000/internal/utils"
)

type seedService struct {
	Name             string
	ShortDescription string
	Description      string
	Price            int
	Category         string
	DurationMinutes  int
	Featured         bool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		log.Fatal(err)
	}

	services := []seedService{
		{Name: "Numerology Reading", ShortDescription: "Complete analysis of your core numbers.", Description: "A full numerology session covering your life path, destiny, soul urge and personality numbers, with practical guidance for the year ahead.", Price: 1100, Category: "numerology", DurationMinutes: 45, Featured: true},
		{Name: "Name Correction", ShortDescription: "Align your name with your birth numbers.", Description: "Spelling adjustments to bring your name into harmony with your date of birth, including alternatives for signatures and business use.", Price: 2100, Category: "numerology", DurationMinutes: 60, Featured: true},
		{Name: "Business Name Analysis", ShortDescription: "Check your brand before you commit.", Description: "Numerological evaluation of a proposed business or brand name against the founder's numbers, with ranked suggestions.", Price: 3100, Category: "business", DurationMinutes: 60},
		{Name: "Mobile Number Analysis", ShortDescription: "Is your number working for you?", Description: "Analysis of your mobile number's vibration and compatibility with your birth chart, with recommended digit combinations.", Price: 551, Category: "numerology", DurationMinutes: 30},
		{Name: "Signature Analysis", ShortDescription: "Refine the mark you leave everywhere.", Description: "Review of your current signature and a corrected design aligned with your numbers.", Price: 751, Category: "numerology", DurationMinutes: 30},
		{Name: "Compatibility Report", ShortDescription: "Relationship and partnership matching.", Description: "Number-by-number compatibility reading for couples or business partners, with remedies for friction points.", Price: 1500, Category: "relationship", DurationMinutes: 45},
		{Name: "Vastu Consultation", ShortDescription: "Harmonize your home or office.", Description: "Room-by-room vastu review with numerology-aware placement remedies that do not require structural changes.", Price: 5100, Category: "vastu", DurationMinutes: 90},
		{Name: "Yearly Forecast", ShortDescription: "Your personal year, month by month.", Description: "Twelve-month forecast based on your personal year number, highlighting favourable windows for money, career and relationships.", Price: 1800, Category: "numerology", DurationMinutes: 45},
	}

	for _, svc := range services {
		slug := utils.Slugify(svc.Name)
		now := time.Now().In(cfg.Timezone)
		filter := bson.M{"slug": slug}
		update := bson.M{
			"$setOnInsert": bson.M{
				"_id":              primitive.NewObjectID().Hex(),
				"name":             svc.Name,
				"shortDescription": svc.ShortDescription,
				"description":      svc.Description,
				"price":            svc.Price,
				"category":         svc.Category,
				"durationMinutes":  svc.DurationMinutes,
				"active":           true,
				"featured":         svc.Featured,
				"slug":             slug,
				"createdAt":        now,
				"updatedAt":        now,
			},
		}

		if _, err := cols.Services.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
			log.Fatalf("seed error for %s: %v", svc.Name, err)
		}
	}

	adminEmail := strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL")))
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		log.Println("seed admin: ADMIN_EMAIL or ADMIN_PASSWORD missing, skipping")
	} else if err := seedAdminUser(ctx, cols, adminEmail, adminPassword, cfg.Timezone); err != nil {
		log.Fatalf("seed admin error: %v", err)
	}

	log.Println("seed completed")
}

func seedAdminUser(ctx context.Context, cols *db.Collections, email, password string, loc *time.Location) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	now := time.Now().In(loc)
	update := bson.M{
		"$set": bson.M{
			"passwordHash": hash,
			"role":         models.UserRoleAdmin,
			"updatedAt":    now,
		},
		"$setOnInsert": bson.M{
			"_id":       primitive.NewObjectID().Hex(),
			"name":      "Admin",
			"email":     email,
			"createdAt": now,
		},
	}
	_, err = cols.Users.UpdateOne(ctx, bson.M{"email": email}, update, options.Update().SetUpsert(true))
	return err
}
