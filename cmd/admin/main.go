package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"linku/backend/internal/auth"
	"linku/backend/internal/catalog"
	"linku/backend/internal/chat"
	"linku/backend/internal/chathub"
	"linku/backend/internal/config"
	"linku/backend/internal/linku"
	"linku/backend/internal/localization"
	"linku/backend/internal/platform/logger"
	"linku/backend/internal/storage"

	"gorm.io/gorm"
)

const usage = `Usage: admin <command> [args]

Commands:
  migrate                  create or update the schema
  token <uid|handle>       sign an access token
  rating <handle>          print a user's rating summary
  rooms <uid>              print a user's room list
  unread <uid> <roomId>    print a user's unread count in a room`

type services struct {
	chat  *chat.Service
	linku *linku.Service
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg := config.Load()
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := storage.Open(cfg.Database)
	if err != nil {
		log.Fatal("failed to open database", "error", err)
	}
	ctx := context.Background()

	command := os.Args[1]
	switch command {
	case "migrate":
		if err := storage.AutoMigrate(db); err != nil {
			log.Fatal("migration failed", "error", err)
		}
		fmt.Println("Schema is up to date.")
		return
	case "token":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin token <uid|handle>")
			os.Exit(1)
		}
		if cfg.Auth.JWTSecret == "" {
			log.Fatal("JWT_SECRET is required to sign tokens")
		}
		tokens := auth.NewJWTProvider(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL, nil)
		token, err := tokens.Issue(os.Args[2])
		if err != nil {
			log.Fatal("failed to sign token", "error", err)
		}
		fmt.Println(token)
		return
	}

	svc := newServices(db, cfg, log)
	switch command {
	case "rating":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin rating <handle>")
			os.Exit(1)
		}
		rating, err := svc.linku.RatingByHandle(ctx, os.Args[2])
		if err != nil {
			log.Fatal("rating lookup failed", "handle", os.Args[2], "error", err)
		}
		printJSON(rating)
	case "rooms":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin rooms <uid>")
			os.Exit(1)
		}
		uid := parseID(os.Args[2], "uid")
		rooms, err := svc.chat.ListMyRooms(ctx, uid)
		if err != nil {
			log.Fatal("room listing failed", "uid", uid, "error", err)
		}
		printJSON(rooms)
	case "unread":
		if len(os.Args) != 4 {
			fmt.Println("Usage: admin unread <uid> <roomId>")
			os.Exit(1)
		}
		uid := parseID(os.Args[2], "uid")
		roomID := parseID(os.Args[3], "roomId")
		n, err := svc.chat.Unread(ctx, uid, roomID)
		if err != nil {
			log.Fatal("unread count failed", "uid", uid, "room_id", roomID, "error", err)
		}
		fmt.Printf("User %d has %d unread message(s) in room %d.\n", uid, n, roomID)
	default:
		fmt.Println("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}
}

// newServices builds read-only cores. Nothing here publishes, so the bus has
// no subscribers.
func newServices(db *gorm.DB, cfg *config.Config, log *logger.Logger) *services {
	store := storage.NewStorageService(db, storage.WithLogger(log))
	posts := catalog.NewGormCatalog(db)
	chatSvc := chat.NewService(store, posts, chathub.NewBus(log), log)
	texts, err := localization.NewLocalizer(cfg.Locale)
	if err != nil {
		log.Fatal("failed to load translations", "error", err)
	}
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		loc = time.UTC
	}
	return &services{
		chat:  chatSvc,
		linku: linku.NewService(store, chatSvc, posts, texts, linku.WithLocation(loc), linku.WithLogger(log)),
	}
}

func parseID(raw, name string) uint {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		fmt.Printf("Invalid %s %q. Please provide a positive integer.\n", name, raw)
		os.Exit(1)
	}
	return uint(id)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
