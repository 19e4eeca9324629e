// Command grant-role replaces the roles of an existing user. It is the
// bootstrap path for the first admin account.
//
//	grant-role -phone 13800138000 -roles tenant,admin
//	grant-role -id 65f0c3... -roles landlord
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rentwise/rentwise/backend/go-services/internal/database"
	"github.com/rentwise/rentwise/backend/go-services/internal/models"
	"github.com/rentwise/rentwise/backend/go-services/internal/password"
	"github.com/rentwise/rentwise/backend/go-services/internal/users"
	"github.com/rentwise/rentwise/backend/go-services/pkg/logger"
)

func main() {
	_ = godotenv.Load()
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	var (
		uri   = flag.String("mongo-uri", os.Getenv("MONGODB_URI"), "MongoDB connection string")
		db    = flag.String("db", envOr("MONGODB_DATABASE", "rentwise"), "database name")
		phone = flag.String("phone", "", "phone number of the user")
		id    = flag.String("id", "", "id of the user")
		roles = flag.String("roles", "", "comma-separated roles: tenant, landlord, admin")
	)
	flag.Parse()

	if err := run(*uri, *db, *phone, *id, *roles); err != nil {
		fmt.Fprintln(os.Stderr, "grant-role:", err)
		os.Exit(1)
	}
}

func run(uri, db, phone, id, roleList string) error {
	if uri == "" {
		return fmt.Errorf("MONGODB_URI or -mongo-uri is required")
	}
	if (phone == "") == (id == "") {
		return fmt.Errorf("exactly one of -phone or -id is required")
	}
	roles, err := models.ParseRoles(strings.Split(roleList, ","))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client, err := database.ConnectMongo(ctx, uri, 10*time.Second)
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	svc := users.NewService(users.NewMongoUserRepository(client.Database(db).Collection("users")), password.NewBcryptHasher(0))
	if phone != "" {
		u, err := svc.FindByPhone(ctx, phone)
		if err != nil {
			return err
		}
		if u == nil {
			return fmt.Errorf("no user with phone %s", phone)
		}
		id = u.ID
	}
	u, err := svc.SetRoles(ctx, id, roles)
	if err != nil {
		return err
	}
	logger.Infof("user %s (%s) now has roles %v", u.ID, u.DisplayName, u.Roles)
	return nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
