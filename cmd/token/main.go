package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"k8s.io/klog/v2"

	"github.com/Thanaruk598-0/CPmail/config"
	"github.com/Thanaruk598-0/CPmail/internal/pkg/auth"
	"github.com/Thanaruk598-0/CPmail/internal/pkg/database"
	"github.com/Thanaruk598-0/CPmail/internal/repository"
)

// 为已存在的用户签发访问令牌，用于本地调试
func main() {
	klog.InitFlags(nil)
	userID := flag.Uint("user", 0, "user id")
	ttl := flag.Duration("ttl", 0, "token lifetime, defaults to auth.token_ttl")
	flag.Parse()
	defer klog.Flush()

	if *userID == 0 {
		log.Fatalf("-user is required")
	}

	cfg := config.GetConfig()
	db, err := database.InitDB(cfg.Database.Type, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	user, err := repository.NewUserRepository(db).Get(context.Background(), *userID)
	if err != nil {
		log.Fatalf("Failed to load user %d: %v", *userID, err)
	}
	if !user.Active() {
		log.Fatalf("User %d is inactive", user.ID)
	}

	lifetime := cfg.Auth.TokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}
	token, err := auth.GenerateToken(cfg.Auth.JWTSecret, user.ID, user.Role, lifetime)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}
	klog.V(6).Infof("令牌已签发: userID=%d, role=%s, ttl=%s", user.ID, user.Role, lifetime)
	fmt.Println(token)
}
