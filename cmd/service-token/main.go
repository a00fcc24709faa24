// Command service-token mints a scoped token for an internal caller of the
// /service routes, signed with SERVICE_TOKEN_SECRET.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/zerotrust/platform/internal/auth"
	"github.com/zerotrust/platform/internal/domain"
	"github.com/zerotrust/platform/internal/infra"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	subject := flag.String("sub", "", "service name the token is issued to")
	scopes := flag.String("scopes", domain.ScopeAuditRead, "comma-separated scopes")
	ttl := flag.Duration("ttl", domain.ServiceTokenTTL, "token lifetime")
	flag.Parse()

	token, err := mint(*subject, *scopes, *ttl)
	if err != nil {
		logger.Error("mint service token failed", "error", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

func mint(subject, scopes string, ttl time.Duration) (string, error) {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	if cfg.ServiceTokenSecret == "" {
		return "", errors.New("SERVICE_TOKEN_SECRET is not set")
	}

	var list []string
	for _, s := range strings.Split(scopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			list = append(list, s)
		}
	}
	return auth.NewServiceTokenManager(cfg.ServiceTokenSecret).Generate(subject, list, ttl)
}
